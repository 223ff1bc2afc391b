package server

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Listen accepts host:port, unix://path and fd://N addresses.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	if path, ok := strings.CutPrefix(addr, "unix://"); ok {
		return listenUnix(ctx, path)
	}

	if fdStr, ok := strings.CutPrefix(addr, "fd://"); ok {
		fd, err := strconv.Atoi(fdStr)
		if err != nil {
			return nil, err
		}
		return net.FileListener(os.NewFile(uintptr(fd), ""))
	}

	var lc net.ListenConfig
	return lc.Listen(ctx, "tcp", addr)
}

func listenUnix(ctx context.Context, path string) (net.Listener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	return lc.Listen(ctx, "unix", path)
}
