package network

import (
	"fmt"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dutchcoders/go-clamd"
	"io"
	"strings"
	"time"
)

// ScanResult is what a virus scanner said about one stream.
type ScanResult struct {
	Infected bool

	// Signature names the virus when Infected is true.
	Signature string

	// Response is the scanner's raw reply.
	Response string
}

// Outcome returns constants.ScanClean or constants.ScanInfected.
func (result *ScanResult) Outcome() string {
	if result.Infected {
		return constants.ScanInfected
	}
	return constants.ScanClean
}

// VirusScanner scans a stream of content. An error means the scan
// could not be done, not that something was found.
type VirusScanner interface {
	Name() string
	Scan(reader io.Reader) (*ScanResult, error)
}

// ClamdScanner sends content to clamd with the INSTREAM command.
// Each scan uses its own connection, so one ClamdScanner can be
// shared by many goroutines.
type ClamdScanner struct {
	name    string
	address string
	timeout time.Duration
	client  *clamd.Clamd
}

// NewClamdScanner returns a scanner for the clamd listening at
// address. A plain host:port means TCP. Use unix:///path/to/socket
// for a local socket. A timeout of zero means wait forever for
// clamd's reply.
func NewClamdScanner(name, address string, timeout time.Duration) *ClamdScanner {
	if name == "" {
		name = "clamd"
	}
	if !strings.Contains(address, "://") {
		address = "tcp://" + address
	}
	return &ClamdScanner{
		name:    name,
		address: address,
		timeout: timeout,
		client:  clamd.NewClamd(address),
	}
}

func (scanner *ClamdScanner) Name() string {
	return scanner.name
}

// Scan streams everything from reader to clamd and waits for the
// verdict. The timeout starts once the content has been sent.
func (scanner *ClamdScanner) Scan(reader io.Reader) (*ScanResult, error) {
	abort := make(chan bool)
	defer close(abort)
	replies, err := scanner.client.ScanStream(reader, abort)
	if err != nil {
		return nil, fmt.Errorf("Cannot scan with %s at %s: %v", scanner.name, scanner.address, err)
	}
	var timeout <-chan time.Time
	if scanner.timeout > 0 {
		timer := time.NewTimer(scanner.timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	var first *clamd.ScanResult
	for {
		select {
		case reply, ok := <-replies:
			if !ok {
				if first == nil {
					return nil, fmt.Errorf("No reply from %s at %s", scanner.name, scanner.address)
				}
				return newScanResult(first)
			}
			// Keep reading so go-clamd can close the connection.
			if first == nil {
				first = reply
			}
		case <-timeout:
			return nil, fmt.Errorf("No reply from %s at %s after %s", scanner.name, scanner.address, scanner.timeout)
		}
	}
}

// newScanResult converts go-clamd's reply. ERROR replies, and
// replies go-clamd could not parse, are errors.
func newScanResult(reply *clamd.ScanResult) (*ScanResult, error) {
	result := &ScanResult{Response: reply.Raw}
	switch reply.Status {
	case clamd.RES_OK:
		return result, nil
	case clamd.RES_FOUND:
		result.Infected = true
		result.Signature = strings.TrimSpace(reply.Description)
		return result, nil
	case clamd.RES_ERROR:
		return nil, fmt.Errorf("clamd error: %s", reply.Raw)
	}
	return nil, fmt.Errorf("Unrecognized clamd reply: '%s'", reply.Raw)
}
