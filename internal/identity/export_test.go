package identity

// NewMemoryRepository exposes the in-memory repository to external tests.
func NewMemoryRepository() Repository {
	return newMockRepository()
}
