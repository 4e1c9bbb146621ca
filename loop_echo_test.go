package evloop_test

import (
	"net"
	"strconv"
	"sync"
	"time"

	evloop "github.com/jursonmo/evloop"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Loop", func() {
	var l *evloop.Loop

	BeforeEach(func() {
		l = evloop.NewLoop(
			evloop.WithPollTimeout(10 * time.Millisecond),
			evloop.WithAcceptTimeout(200 * time.Millisecond),
		)
		go func() { _ = l.Start() }()
	})

	AfterEach(func() {
		l.Stop()
	})

	It("echoes bytes pushed by the connector back from the accepted side", func() {
		var mu sync.Mutex
		var received []byte

		lnID, err := l.Listen(evloop.ListenOptions{
			Address: "127.0.0.1",
			Port:    0,
			Accept: func(loop *evloop.Loop, id evloop.ID) {
				loop.ReadCB(id, func(loop *evloop.Loop, id evloop.ID, data []byte) {
					buf := append([]byte(nil), data...)
					echoed := false
					loop.WriteCB(id, func(loop *evloop.Loop, id evloop.ID) []byte {
						if echoed {
							return nil
						}
						echoed = true
						return buf
					})
					loop.Writing(id)
				})
			},
		})
		Expect(err).ToNot(HaveOccurred())

		var port int
		Eventually(func() bool {
			addr, ok := l.ListenAddr(lnID)
			if !ok {
				return false
			}
			tcpAddr, ok := addr.(*net.TCPAddr)
			if !ok {
				return false
			}
			port = tcpAddr.Port
			return port != 0
		}, time.Second).Should(BeTrue())

		connID, err := l.Connect(evloop.ConnectOptions{
			Host: "127.0.0.1",
			Port: port,
			Connect: func(loop *evloop.Loop, id evloop.ID) {
				loop.ReadCB(id, func(loop *evloop.Loop, id evloop.ID, data []byte) {
					mu.Lock()
					received = append(received, data...)
					mu.Unlock()
				})
			},
		})
		Expect(err).ToNot(HaveOccurred())

		Eventually(func() bool {
			_, ok := l.RemoteInfo(connID)
			return ok
		}, time.Second).Should(BeTrue())

		sent := false
		l.WriteCB(connID, func(loop *evloop.Loop, id evloop.ID) []byte {
			if sent {
				return nil
			}
			sent = true
			return []byte("ping")
		})
		l.Writing(connID)

		Eventually(func() []byte {
			mu.Lock()
			defer mu.Unlock()
			return received
		}, 2*time.Second).Should(Equal([]byte("ping")))
	})

	It("drops a staged connection that never completes a TLS handshake within accept_timeout", func() {
		var dropped bool
		var mu sync.Mutex

		lnID, err := l.Listen(evloop.ListenOptions{
			Address:     "127.0.0.1",
			Port:        0,
			TLS:         true,
			TLSCertFile: "",
			TLSKeyFile:  "",
			Accept: func(loop *evloop.Loop, id evloop.ID) {
				loop.HupCB(id, func(loop *evloop.Loop, id evloop.ID) {
					mu.Lock()
					dropped = true
					mu.Unlock()
				})
				loop.ErrorCB(id, func(loop *evloop.Loop, id evloop.ID, err *evloop.Error) {
					mu.Lock()
					dropped = true
					mu.Unlock()
				})
			},
		})
		Expect(err).ToNot(HaveOccurred())
		go func() { _ = l.Start() }()

		var port int
		Eventually(func() bool {
			addr, ok := l.ListenAddr(lnID)
			if !ok {
				return false
			}
			tcpAddr, ok := addr.(*net.TCPAddr)
			port = tcpAddr.Port
			return ok && port != 0
		}, time.Second).Should(BeTrue())

		// A plain TCP dial that never speaks TLS: the server-side handshake
		// goroutine blocks forever reading from a peer that never writes a
		// ClientHello, so the only way this connection ever clears staging is
		// via the accept_timeout drop in acceptHousekeeping.
		raw, dialErr := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		Expect(dialErr).ToNot(HaveOccurred())
		defer raw.Close()

		Eventually(func() bool {
			mu.Lock()
			defer mu.Unlock()
			return dropped
		}, 2*time.Second).Should(BeTrue())
	})
})
