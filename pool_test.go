package bokeh

import (
	"runtime"
	"sync"
	"testing"
)

func TestNewExporterPool_ClampsToMinimum(t *testing.T) {
	for _, n := range []int{-3, 0} {
		p := NewExporterPool(n)
		if p.Size() != 1 {
			t.Errorf("NewExporterPool(%d).Size() = %d, want 1", n, p.Size())
		}
		if err := p.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	}
}

func TestExporterPool_AcquireRelease(t *testing.T) {
	p := NewExporterPool(2)
	defer p.Close()

	a := p.Acquire()
	b := p.Acquire()
	if a == nil || b == nil {
		t.Fatal("expected non-nil exporters")
	}
	if a == b {
		t.Error("expected distinct exporters for concurrent acquires")
	}

	p.Release(a)
	c := p.Acquire()
	if c != a {
		t.Error("expected released exporter to be reused")
	}
	p.Release(b)
	p.Release(c)
}

func TestExporterPool_CloseIsIdempotent(t *testing.T) {
	p := NewExporterPool(1)
	if err := p.Close(); err != nil {
		t.Fatalf("first Close() = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
}

func TestExporterPool_ReleaseAfterCloseIsNoop(t *testing.T) {
	p := NewExporterPool(1)
	exp := p.Acquire()
	if err := p.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	// Must not panic on the closed channel
	p.Release(exp)
}

func TestExporterPool_AcquireAfterCloseReturnsNil(t *testing.T) {
	p := NewExporterPool(1)
	if err := p.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if exp := p.Acquire(); exp != nil {
		t.Errorf("expected nil from a closed pool, got %v", exp)
	}
}

func TestExporterPool_ConcurrentReleaseClose(t *testing.T) {
	// Release racing Close must never send on the closed channel.
	for i := 0; i < 500; i++ {
		p := NewExporterPool(2)
		exp := p.Acquire()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			p.Release(exp)
		}()
		go func() {
			defer wg.Done()
			_ = p.Close()
		}()
		wg.Wait()
	}
}

func TestResolvePoolSize(t *testing.T) {
	t.Run("explicit workers win", func(t *testing.T) {
		if got := ResolvePoolSize(3); got != 3 {
			t.Errorf("ResolvePoolSize(3) = %d, want 3", got)
		}
	})

	t.Run("auto stays within bounds", func(t *testing.T) {
		got := ResolvePoolSize(0)
		if got < MinPoolSize || got > MaxPoolSize {
			t.Errorf("ResolvePoolSize(0) = %d, outside [%d, %d]", got, MinPoolSize, MaxPoolSize)
		}

		want := runtime.GOMAXPROCS(0) / cpuDivisor
		if want < MinPoolSize {
			want = MinPoolSize
		}
		if want > MaxPoolSize {
			want = MaxPoolSize
		}
		if got != want {
			t.Errorf("ResolvePoolSize(0) = %d, want %d", got, want)
		}
	})
}
