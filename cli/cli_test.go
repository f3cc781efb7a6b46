package cli

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"mini-ack/protocol"
	"mini-ack/registry"
	"mini-ack/server"
	"mini-ack/transport"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// freePort returns a port that nothing listened on a moment ago.
func freePort(t *testing.T, network string) int {
	t.Helper()
	if network == "udp4" {
		pc, err := net.ListenPacket(network, "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		defer pc.Close()
		return pc.LocalAddr().(*net.UDPAddr).Port
	}
	ln, err := net.Listen(network, "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestClientBadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no flags", nil},
		{"missing port", []string{"-x", "1", "-t", "tcp", "-s", "127.0.0.1"}},
		{"bad ip", []string{"-x", "1", "-t", "tcp", "-s", "256.0.0.1", "-p", "9000"}},
		{"hostname", []string{"-x", "1", "-t", "tcp", "-s", "localhost", "-p", "9000"}},
		{"bad transport", []string{"-x", "1", "-t", "sctp", "-s", "127.0.0.1", "-p", "9000"}},
		{"low port", []string{"-x", "1", "-t", "tcp", "-s", "127.0.0.1", "-p", "80"}},
		{"high port", []string{"-x", "1", "-t", "udp", "-s", "127.0.0.1", "-p", "65536"}},
		{"payload too big", []string{"-x", "2147483648", "-t", "tcp", "-s", "127.0.0.1", "-p", "9000"}},
		{"payload not a number", []string{"-x", "abc", "-t", "tcp", "-s", "127.0.0.1", "-p", "9000"}},
		{"unknown flag", []string{"-q"}},
		{"extra args", []string{"-x", "1", "-t", "tcp", "-s", "127.0.0.1", "-p", "9000", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := RunClient(context.Background(), tt.args, &stdout, &stderr)
			if code != protocol.ExitConfig {
				t.Errorf("expect exit code %d, got %d (stderr %q)", protocol.ExitConfig, code, stderr.String())
			}
			if !strings.Contains(stderr.String(), clientUsage) {
				t.Errorf("expect usage on stderr, got %q", stderr.String())
			}
			if stdout.Len() != 0 {
				t.Errorf("expect empty stdout, got %q", stdout.String())
			}
		})
	}
}

func TestServerBadArguments(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no flags", nil},
		{"missing transport", []string{"-p", "9000"}},
		{"bad transport", []string{"-t", "http", "-p", "9000"}},
		{"bad port", []string{"-t", "tcp", "-p", "nine"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := RunServer(context.Background(), tt.args, &stdout, &stderr)
			if code != protocol.ExitConfig {
				t.Errorf("expect exit code %d, got %d (stderr %q)", protocol.ExitConfig, code, stderr.String())
			}
			if !strings.Contains(stderr.String(), serverUsage) {
				t.Errorf("expect usage on stderr, got %q", stderr.String())
			}
		})
	}
}

func TestClientNoServer(t *testing.T) {
	port := freePort(t, "tcp4")
	var stdout, stderr bytes.Buffer
	code := RunClient(context.Background(), []string{"-x", "1", "-t", "tcp", "-s", "127.0.0.1", "-p", strconv.Itoa(port)}, &stdout, &stderr)
	if code != protocol.ExitFailure {
		t.Fatalf("expect exit code %d, got %d", protocol.ExitFailure, code)
	}
	if !strings.HasPrefix(stderr.String(), "Error: failed to connect") {
		t.Errorf("expect connect diagnostic, got %q", stderr.String())
	}
}

func TestClientServerRoundTrip(t *testing.T) {
	for _, network := range []string{"tcp", "udp"} {
		t.Run(network, func(t *testing.T) {
			port := strconv.Itoa(freePort(t, network+"4"))

			ctx, cancel := context.WithCancel(context.Background())
			serverOut := &lockedBuffer{}
			done := make(chan int, 1)
			go func() {
				done <- RunServer(ctx, []string{"-t", network, "-p", port}, serverOut, &lockedBuffer{})
			}()

			args := []string{"-x", "42", "-t", network, "-s", "127.0.0.1", "-p", port, "--reply-timeout", "200ms"}
			var (
				code   int
				stdout bytes.Buffer
			)
			// The server binds asynchronously; retry until it answers.
			deadline := time.Now().Add(3 * time.Second)
			for time.Now().Before(deadline) {
				stdout.Reset()
				code = RunClient(context.Background(), args, &stdout, &bytes.Buffer{})
				if code == protocol.ExitOK {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			if code != protocol.ExitOK {
				t.Fatalf("expect exit code 0, got %d", code)
			}
			if stdout.String() != "success!\n" {
				t.Errorf("expect success!, got %q", stdout.String())
			}
			if !strings.Contains(serverOut.String(), "the sent number is: 42\n") {
				t.Errorf("expect server to print the payload, got %q", serverOut.String())
			}

			cancel()
			select {
			case code := <-done:
				if code != protocol.ExitOK {
					t.Errorf("expect server exit code 0, got %d", code)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("server did not stop")
			}
		})
	}
}

func TestServerBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp4", ":0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	var stderr bytes.Buffer
	code := RunServer(context.Background(), []string{"-t", "tcp", "-p", port}, &bytes.Buffer{}, &stderr)
	if code != protocol.ExitFailure {
		t.Fatalf("expect exit code %d, got %d", protocol.ExitFailure, code)
	}
	if !strings.Contains(stderr.String(), "bind") {
		t.Errorf("expect bind diagnostic, got %q", stderr.String())
	}
}

// startAckServer runs an in-process stream server and returns its address.
func startAckServer(t *testing.T, out io.Writer) string {
	t.Helper()
	svr := server.NewServer(transport.KindStream, server.WithOutput(out))
	if err := svr.Listen("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	go svr.Serve()
	t.Cleanup(func() { svr.Shutdown(time.Second) })
	return svr.Addr().String()
}

func TestClientZeroPaddedAddress(t *testing.T) {
	out := &lockedBuffer{}
	_, port, _ := net.SplitHostPort(startAckServer(t, out))

	var stdout, stderr bytes.Buffer
	code := RunClient(context.Background(), []string{"-x", "8", "-t", "tcp", "-s", "127.000.000.001", "-p", port}, &stdout, &stderr)
	if code != protocol.ExitOK {
		t.Fatalf("expect exit code 0, got %d (stderr %q)", code, stderr.String())
	}
	if stdout.String() != "success!\n" {
		t.Errorf("expect success!, got %q", stdout.String())
	}
	if got := out.String(); got != "the sent number is: 8\n" {
		t.Errorf("expect server to print the payload, got %q", got)
	}
}

func TestClientReplyTimeoutExitCode(t *testing.T) {
	// A peer that takes the request and never answers.
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	var stdout, stderr bytes.Buffer
	start := time.Now()
	code := RunClient(context.Background(), []string{"-x", "1", "-t", "tcp", "-s", "127.0.0.1", "-p", port, "--reply-timeout", "200ms"}, &stdout, &stderr)
	if code != protocol.ExitTimeout {
		t.Fatalf("expect exit code %d, got %d (stderr %q)", protocol.ExitTimeout, code, stderr.String())
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("expect the reply timeout to apply, took %s", elapsed)
	}
	if !strings.HasPrefix(stderr.String(), "Error: reply timeout") {
		t.Errorf("expect timeout diagnostic, got %q", stderr.String())
	}
	if stdout.Len() != 0 {
		t.Errorf("expect empty stdout, got %q", stdout.String())
	}
}

func useRegistry(t *testing.T, reg registry.Registry) {
	t.Helper()
	orig := openRegistry
	openRegistry = func([]string, time.Duration) (registry.Registry, func() error, error) {
		return reg, func() error { return nil }, nil
	}
	t.Cleanup(func() { openRegistry = orig })
}

func TestClientDiscover(t *testing.T) {
	out := &lockedBuffer{}
	addr := startAckServer(t, out)

	reg := registry.NewMemoryRegistry()
	reg.Register(context.Background(), registry.Endpoint{Addr: addr, Network: "tcp"}, 5)
	useRegistry(t, reg)

	var stdout, stderr bytes.Buffer
	code := RunClient(context.Background(), []string{"-x", "5", "-t", "tcp", "--discover", "--balancer", "weighted_random"}, &stdout, &stderr)
	if code != protocol.ExitOK {
		t.Fatalf("expect exit code 0, got %d (stderr %q)", code, stderr.String())
	}
	if stdout.String() != "success!\n" {
		t.Errorf("expect success!, got %q", stdout.String())
	}
	if got := out.String(); got != "the sent number is: 5\n" {
		t.Errorf("expect server to print the payload, got %q", got)
	}
}

func TestClientDiscoverErrors(t *testing.T) {
	useRegistry(t, registry.NewMemoryRegistry())

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no endpoints", []string{"-x", "5", "-t", "udp", "--discover"}, protocol.ExitFailure},
		{"with server flag", []string{"-x", "5", "-t", "tcp", "--discover", "-s", "127.0.0.1"}, protocol.ExitConfig},
		{"unknown balancer", []string{"-x", "5", "-t", "tcp", "--discover", "--balancer", "random"}, protocol.ExitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			if code := RunClient(context.Background(), tt.args, &bytes.Buffer{}, &stderr); code != tt.want {
				t.Errorf("expect exit code %d, got %d (stderr %q)", tt.want, code, stderr.String())
			}
		})
	}
}
