package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_SetGet(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Get(42)
	assert.False(t, ok)

	r.Set(42, "folder-a")

	got, ok := r.Get(42)
	assert.True(t, ok)
	assert.Equal(t, "folder-a", got)

	// Later navigation replaces the earlier folder.
	r.Set(42, "folder-b")

	got, _ = r.Get(42)
	assert.Equal(t, "folder-b", got)
}

func TestRegistry_UsersIndependent(t *testing.T) {
	r := NewRegistry()
	r.Set(1, "a")
	r.Set(2, "b")

	got1, _ := r.Get(1)
	got2, _ := r.Get(2)
	assert.Equal(t, "a", got1)
	assert.Equal(t, "b", got2)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			r.Set(int64(i%5), "folder")
			r.Get(int64(i % 5))
		}()
	}

	wg.Wait()

	got, ok := r.Get(0)
	assert.True(t, ok)
	assert.Equal(t, "folder", got)
}
