package idgen

import (
	"strings"
	"sync"
	"testing"
)

func TestRequestIDPrefix(t *testing.T) {
	id := RequestID()
	if !strings.HasPrefix(id, "req_") {
		t.Errorf("RequestID() = %q, want req_ prefix", id)
	}
	if len(id) <= len("req_") {
		t.Errorf("RequestID() = %q, want an ID after the prefix", id)
	}
}

func TestRequestIDUnique(t *testing.T) {
	const workers = 8
	const perWorker = 100

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]string, 0, perWorker)
			for j := 0; j < perWorker; j++ {
				ids = append(ids, RequestID())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				if seen[id] {
					t.Errorf("duplicate request ID %q", id)
				}
				seen[id] = true
			}
		}()
	}
	wg.Wait()
}
