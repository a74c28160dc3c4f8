package id

import "github.com/google/uuid"

// UUIDGenerator produces RFC 4122 UUIDs. The application wires it for every
// generated id: waiver claims, processing runs and roster transactions.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	return uuid.NewString(), nil
}
