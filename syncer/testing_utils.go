package syncer

import (
	"context"
	"sync"
)

// mockPut captures one observed PUT.
type mockPut struct {
	url     string
	etag    string
	payload string
}

// mockHTTPClient is a scriptable stand-in for the CalDAV transport. Each
// PUT consumes the next scripted response; when the script runs out the
// last entry repeats.
type mockHTTPClient struct {
	mu sync.Mutex

	putResponses []mockPutResponse
	puts         []mockPut

	deleteErr error
	deletes   []string

	getEtag    string
	getEtagErr error
}

type mockPutResponse struct {
	etag string
	err  error
}

func (m *mockHTTPClient) DoPUT(_ context.Context, url string, etag string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.puts = append(m.puts, mockPut{url: url, etag: etag, payload: string(data)})

	if len(m.putResponses) == 0 {
		return "mock-etag", nil
	}
	resp := m.putResponses[0]
	if len(m.putResponses) > 1 {
		m.putResponses = m.putResponses[1:]
	}
	return resp.etag, resp.err
}

func (m *mockHTTPClient) DoDELETE(_ context.Context, url string, etag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, url)
	return m.deleteErr
}

func (m *mockHTTPClient) DoGetEtag(_ context.Context, url string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getEtag, m.getEtagErr
}

func (m *mockHTTPClient) putCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.puts)
}

func (m *mockHTTPClient) lastPut() mockPut {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts[len(m.puts)-1]
}

func (m *mockHTTPClient) allPuts() []mockPut {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockPut, len(m.puts))
	copy(out, m.puts)
	return out
}
