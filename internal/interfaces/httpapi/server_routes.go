package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerAuthorizedRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	mux.Handle("POST /v1/leagues/{leagueID}/waivers/claims", RequireAuth(verifier, http.HandlerFunc(handler.SubmitWaiverClaim)))
	mux.Handle("GET /v1/leagues/{leagueID}/waivers/claims/me", RequireAuth(verifier, http.HandlerFunc(handler.ListMyWaiverClaims)))
	mux.Handle("PATCH /v1/leagues/{leagueID}/waivers/claims/{claimID}", RequireAuth(verifier, http.HandlerFunc(handler.UpdateWaiverClaim)))
	mux.Handle("DELETE /v1/leagues/{leagueID}/waivers/claims/{claimID}", RequireAuth(verifier, http.HandlerFunc(handler.CancelWaiverClaim)))
	mux.Handle("PUT /v1/leagues/{leagueID}/waivers/claims/order", RequireAuth(verifier, http.HandlerFunc(handler.ReorderWaiverClaims)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/leagues/{leagueID}/waivers/initialize", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.InitializeLeagueWaivers)))
	mux.Handle("POST /v1/internal/leagues/{leagueID}/waivers/process", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.ProcessLeagueWaivers)))
}
