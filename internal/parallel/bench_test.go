package parallel

import "testing"

func BenchmarkWorkerPool_Create(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		pool := NewWorkerPool(0)
		pool.Close()
	}
}

func BenchmarkWorkerPool_ExecuteAll_100(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	work := make([]func(), 100)
	for i := range work {
		work[i] = func() {}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.ExecuteAll(work)
	}
}

// BenchmarkWorkerPool_Bands_1024 clears a 1024x1024 RGBA8 texture in row
// bands, as the soft backend does.
func BenchmarkWorkerPool_Bands_1024(b *testing.B) {
	pool := NewWorkerPool(0)
	defer pool.Close()

	const size, stride = 1024, 1024 * 4
	tex := make([]byte, size*stride)

	b.SetBytes(int64(len(tex)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Bands(size, func(y0, y1 int) {
			clear(tex[y0*stride : y1*stride])
		})
	}
}
