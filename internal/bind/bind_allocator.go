package bind

import (
	"net"

	"github.com/alecthomas/atomic"
)

// BindAllocator hands out free localhost ports starting from a base port.
type BindAllocator struct {
	host string
	port atomic.Int32
}

func NewBindAllocator(host string, basePort int) *BindAllocator {
	return &BindAllocator{
		host: host,
		port: atomic.NewInt32(int32(basePort) - 1),
	}
}

func (b *BindAllocator) NextPort() int {
	var l *net.TCPListener
	var err error
	for {
		b.port.Add(1)
		l, err = net.ListenTCP("tcp", &net.TCPAddr{IP: net.ParseIP(b.host), Port: int(b.port.Load())})
		if err != nil {
			continue
		}
		_ = l.Close()

		return int(b.port.Load())
	}
}
