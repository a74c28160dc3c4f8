package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name ClaimsRepository --dir ../domain/waiver --output domain/waiver --outpkg waivermock --filename claims_repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name PriorityRepository --dir ../domain/waiver --output domain/waiver --outpkg waivermock --filename priority_repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name FaabBudgetRepository --dir ../domain/waiver --output domain/waiver --outpkg waivermock --filename faab_budget_repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name WaiverWireRepository --dir ../domain/waiver --output domain/waiver --outpkg waivermock --filename waiver_wire_repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name ProcessingRunsRepository --dir ../domain/waiver --output domain/waiver --outpkg waivermock --filename processing_runs_repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name LeagueProvider --dir ../domain/waiver --output domain/waiver --outpkg waivermock --filename league_provider_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/roster --output domain/roster --outpkg rostermock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/rostertx --output domain/rostertx --outpkg rostertxmock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/trade --output domain/trade --outpkg trademock --filename repository_mock.go
