package network

import (
	"fmt"
	"net"
	"sync"
)

// TCPTestServer is for mocking TCP services, like clamd, in unit tests.
type TCPTestServer struct {
	listener    net.Listener
	mutex       sync.Mutex
	isListening bool
}

// NewTCPTestServer creates a new TCP server that runs callback on
// each connection in its own goroutine. The callback is responsible
// for closing the connection.
// Use listenAddress "127.0.0.1:0", then check TCPTestServer.Addr()
// to get the address we're listening on. (System assigns port when port is zero.)
func NewTCPTestServer(listenAddress string, callback func(net.Conn)) *TCPTestServer {
	listener, err := net.Listen("tcp", listenAddress)
	if err != nil {
		panic(fmt.Sprintf("Error listening tcp server: %v", err.Error()))
	}
	server := &TCPTestServer{
		listener:    listener,
		isListening: true,
	}
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				if server.IsListening() {
					panic(fmt.Sprintf("Error accepting tcp connection: %v", err.Error()))
				}
				return
			}
			go callback(conn)
		}
	}()
	return server
}

// Addr returns the address the server is listening on.
func (server *TCPTestServer) Addr() string {
	return server.listener.Addr().String()
}

func (server *TCPTestServer) Close() {
	server.mutex.Lock()
	server.isListening = false
	server.mutex.Unlock()
	server.listener.Close()
}

func (server *TCPTestServer) IsListening() bool {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return server.isListening
}
