package client

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveFirstIPv4PrefersIPv4(t *testing.T) {
	ip, err := resolveFirstIPv4("localhost")
	require.NoError(t, err)
	require.NotNil(t, ip.To4())
}

func TestResolveFirstIPv4UnknownHost(t *testing.T) {
	_, err := resolveFirstIPv4("this-host-should-not-resolve.invalid")
	require.Error(t, err)
}

func TestDialConnecterConnectsPlainTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan struct{})
	go func() {
		conn, err := ln.Accept()
		require.NoError(t, err)
		defer conn.Close()
		close(accepted)
	}()

	dc := DialConnecter{}
	conn, err := dc.Connect(ln.Addr().String(), "127.0.0.1", false)
	require.NoError(t, err)
	defer conn.Close()
	<-accepted
}
