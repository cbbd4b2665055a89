package entity

import (
	"sync"

	"github.com/kode4food/tinydds/closer"
)

type entityCloser struct {
	closed  chan struct{}
	onClose func()
	once    sync.Once
}

func makeCloser(onClose func()) closer.Closer {
	return &entityCloser{
		closed:  make(chan struct{}),
		onClose: onClose,
	}
}

func (c *entityCloser) Close() {
	c.once.Do(func() {
		close(c.closed)
		if c.onClose != nil {
			c.onClose()
		}
	})
}

func (c *entityCloser) IsClosed() <-chan struct{} {
	return c.closed
}
