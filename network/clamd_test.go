package network_test

import (
	"bufio"
	"encoding/binary"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// fakeClamd reads one INSTREAM request and replies according to the
// stream's content: FOUND if it contains "EICAR", ERROR if it
// contains "TOOBIG", a garbled line if it contains "GARBLE", and OK
// otherwise. If it contains "SLOW", it never replies.
func fakeClamd(conn net.Conn) {
	defer conn.Close()
	reader := bufio.NewReader(conn)
	prefix, err := reader.ReadByte()
	if err != nil {
		return
	}
	delim := byte('\n')
	if prefix == 'z' {
		delim = '\x00'
	}
	command, err := reader.ReadString(delim)
	if err != nil || strings.TrimRight(command, "\x00\n") != "INSTREAM" {
		conn.Write([]byte("UNKNOWN COMMAND\n"))
		return
	}
	var content strings.Builder
	size := make([]byte, 4)
	for {
		if _, err := io.ReadFull(reader, size); err != nil {
			return
		}
		n := binary.BigEndian.Uint32(size)
		if n == 0 {
			break
		}
		chunk := make([]byte, n)
		if _, err := io.ReadFull(reader, chunk); err != nil {
			return
		}
		content.Write(chunk)
	}
	body := content.String()
	reply := "stream: OK"
	switch {
	case strings.Contains(body, "SLOW"):
		time.Sleep(2 * time.Second)
		return
	case strings.Contains(body, "EICAR"):
		reply = "stream: Eicar-Test-Signature FOUND"
	case strings.Contains(body, "TOOBIG"):
		reply = "stream: INSTREAM size limit exceeded ERROR"
	case strings.Contains(body, "GARBLE"):
		reply = "what?"
	}
	conn.Write([]byte(reply + string(delim)))
}

func TestClamdScanner(t *testing.T) {
	server := network.NewTCPTestServer("127.0.0.1:0", fakeClamd)
	defer server.Close()
	scanner := network.NewClamdScanner("", server.Addr(), 5*time.Second)
	assert.Equal(t, "clamd", scanner.Name())

	result, err := scanner.Scan(strings.NewReader("hello world"))
	require.Nil(t, err)
	assert.False(t, result.Infected)
	assert.Equal(t, constants.ScanClean, result.Outcome())
	assert.Equal(t, "stream: OK", result.Response)

	// Many chunks, virus at the end.
	big := strings.Repeat("x", 150*1024) + "EICAR"
	result, err = scanner.Scan(strings.NewReader(big))
	require.Nil(t, err)
	assert.True(t, result.Infected)
	assert.Equal(t, "Eicar-Test-Signature", result.Signature)
	assert.Equal(t, constants.ScanInfected, result.Outcome())
}

func TestClamdScannerErrorReplies(t *testing.T) {
	server := network.NewTCPTestServer("127.0.0.1:0", fakeClamd)
	defer server.Close()
	scanner := network.NewClamdScanner("clam1", server.Addr(), 5*time.Second)

	_, err := scanner.Scan(strings.NewReader("TOOBIG"))
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "size limit exceeded")

	_, err = scanner.Scan(strings.NewReader("GARBLE"))
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "what?")
}

func TestClamdScannerTimeout(t *testing.T) {
	server := network.NewTCPTestServer("127.0.0.1:0", fakeClamd)
	defer server.Close()
	scanner := network.NewClamdScanner("clam1", "tcp://"+server.Addr(), 100*time.Millisecond)
	_, err := scanner.Scan(strings.NewReader("SLOW"))
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "No reply")
}

func TestClamdScannerCannotConnect(t *testing.T) {
	server := network.NewTCPTestServer("127.0.0.1:0", fakeClamd)
	addr := server.Addr()
	server.Close()
	scanner := network.NewClamdScanner("clam1", addr, time.Second)
	_, err := scanner.Scan(strings.NewReader("hello world"))
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "clam1")
}
