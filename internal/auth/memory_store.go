package auth

// MemoryTokenStore keeps the token in memory.
type MemoryTokenStore struct {
	token string
}

func (m *MemoryTokenStore) Load() (string, bool) {
	return m.token, m.token != ""
}

func (m *MemoryTokenStore) Save(token string) {
	m.token = token
}

func (m *MemoryTokenStore) Clear() {
	m.token = ""
}
