package proxy

import (
	"io"
	"sync"
)

// relayBufferSize 는 릴레이 복사 한 방향이 사용하는 버퍼 크기입니다.
const relayBufferSize = 32 * 1024

// bufferPool 은 방향별 복사 버퍼를 재사용해 세션당 할당을 줄입니다.
var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, relayBufferSize)
		return &b
	},
}

// copyWithBuffer 는 풀에서 빌린 버퍼로 src → dst 복사를 수행합니다.
func copyWithBuffer(dst io.Writer, src io.Reader) (int64, error) {
	bp := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bp)
	return io.CopyBuffer(dst, src, *bp)
}
