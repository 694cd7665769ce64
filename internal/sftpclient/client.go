// Package sftpclient wraps the SFTP session with the resilience a flaky
// government file server needs: retried connects, a keepalive probe,
// per-operation retries and an emulated working directory.
package sftpclient

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/Daniromero1410/Consolidador-Positiva/internal/config"
	"github.com/Daniromero1410/Consolidador-Positiva/internal/models"
)

// Client is a resilient SFTP session. All methods are safe for use from a
// single goroutine; the keepalive probe runs on its own.
type Client struct {
	cfg    *config.Config
	logger *zap.Logger

	mu      sync.Mutex
	sshConn *ssh.Client
	sftp    *sftp.Client
	cwd     string
	stopKA  chan struct{}

	reconnections int
}

func New(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{cfg: cfg, logger: logger, cwd: "/"}
}

// Connect dials the server, retrying with exponential backoff.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	c.closeLocked()

	addr := net.JoinHostPort(c.cfg.SFTPHost, fmt.Sprintf("%d", c.cfg.SFTPPort))
	sshCfg := &ssh.ClientConfig{
		User: c.cfg.SFTPUser,
		Auth: []ssh.AuthMethod{
			ssh.Password(c.cfg.SFTPPassword),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.cfg.ConnectTimeout,
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxConnRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(c.cfg.BackoffBase, float64(attempt))) * time.Second
			c.logger.Warn("retrying connection",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			time.Sleep(backoff)
		}

		sshConn, err := ssh.Dial("tcp", addr, sshCfg)
		if err != nil {
			lastErr = err
			continue
		}
		sftpConn, err := sftp.NewClient(sshConn)
		if err != nil {
			sshConn.Close()
			lastErr = err
			continue
		}

		c.sshConn = sshConn
		c.sftp = sftpConn
		c.cwd = "/"
		c.stopKA = make(chan struct{})
		go c.keepalive(c.stopKA, sshConn)

		c.logger.Info("connected", zap.String("host", c.cfg.SFTPHost))
		return nil
	}
	return fmt.Errorf("failed to connect to %s after %d attempts: %w",
		addr, c.cfg.MaxConnRetries, lastErr)
}

// keepalive probes the server so idle sessions are not silently dropped
// while a large workbook is being parsed.
func (c *Client) keepalive(stop chan struct{}, conn *ssh.Client) {
	ticker := time.NewTicker(c.cfg.KeepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, _, err := conn.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				c.logger.Debug("keepalive failed", zap.Error(err))
				return
			}
		}
	}
}

// IsActive probes the session with a cheap stat.
func (c *Client) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sftp == nil {
		return false
	}
	_, err := c.sftp.Getwd()
	return err == nil
}

// ForceReconnect tears the session down and dials again.
func (c *Client) ForceReconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnections++
	return c.connectLocked()
}

// Reconnections returns how many times the session was re-dialed.
func (c *Client) Reconnections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnections
}

// Close shuts the session down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func (c *Client) closeLocked() {
	if c.stopKA != nil {
		close(c.stopKA)
		c.stopKA = nil
	}
	if c.sftp != nil {
		c.sftp.Close()
		c.sftp = nil
	}
	if c.sshConn != nil {
		c.sshConn.Close()
		c.sshConn = nil
	}
}

// Cd changes the emulated working directory after verifying it exists.
func (c *Client) Cd(dir string) error {
	return c.execute("cd "+dir, func(s *sftp.Client) error {
		target := c.resolve(dir)
		info, err := s.Stat(target)
		if err != nil {
			return fmt.Errorf("failed to change directory to %s: %w", target, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("failed to change directory: %s is not a directory", target)
		}
		c.cwd = target
		return nil
	})
}

// Cwd returns the emulated working directory.
func (c *Client) Cwd() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cwd
}

// List returns the entries of the working directory.
func (c *Client) List() ([]models.RemoteEntry, error) {
	var entries []models.RemoteEntry
	err := c.execute("list "+c.cwd, func(s *sftp.Client) error {
		infos, err := s.ReadDir(c.cwd)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", c.cwd, err)
		}
		entries = entries[:0]
		for _, info := range infos {
			entries = append(entries, models.RemoteEntry{
				Name:    info.Name(),
				Dir:     info.IsDir(),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			})
		}
		return nil
	})
	return entries, err
}

// Stat stats a path relative to the working directory.
func (c *Client) Stat(name string) (models.RemoteEntry, error) {
	var entry models.RemoteEntry
	err := c.execute("stat "+name, func(s *sftp.Client) error {
		info, err := s.Stat(c.resolve(name))
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", name, err)
		}
		entry = models.RemoteEntry{
			Name:    info.Name(),
			Dir:     info.IsDir(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		return nil
	})
	return entry, err
}

// Download copies a remote file to a local path.
func (c *Client) Download(remote, local string) error {
	return c.execute("download "+remote, func(s *sftp.Client) error {
		src, err := s.Open(c.resolve(remote))
		if err != nil {
			return fmt.Errorf("failed to open remote file %s: %w", remote, err)
		}
		defer src.Close()

		dst, err := os.Create(local)
		if err != nil {
			return fmt.Errorf("failed to create local file %s: %w", local, err)
		}
		defer dst.Close()

		if _, err := io.Copy(dst, src); err != nil {
			return fmt.Errorf("failed to download %s: %w", remote, err)
		}
		return nil
	})
}

// execute runs an operation with retries. Before each attempt the session
// is probed with a cheap round-trip; a dead or missing session is rebuilt
// silently before the operation runs.
func (c *Client) execute(label string, op func(*sftp.Client) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxOpRetries; attempt++ {
		if c.sftp != nil {
			if _, err := c.sftp.Getwd(); err != nil {
				c.logger.Debug("liveness probe failed",
					zap.String("op", label), zap.Error(err))
				c.closeLocked()
			}
		}
		if c.sftp == nil {
			if err := c.connectLocked(); err != nil {
				return err
			}
			c.reconnections++
		}

		lastErr = op(c.sftp)
		if lastErr == nil {
			return nil
		}
		if !isConnectionError(lastErr) {
			return lastErr
		}

		c.logger.Warn("operation hit a dead connection, reconnecting",
			zap.String("op", label),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
		c.closeLocked()
	}
	return fmt.Errorf("failed after %d attempts (%s): %w", c.cfg.MaxOpRetries, label, lastErr)
}

func (c *Client) resolve(name string) string {
	if path.IsAbs(name) {
		return path.Clean(name)
	}
	return path.Join(c.cwd, name)
}

// isConnectionError separates dead-session failures, worth a reconnect,
// from ordinary protocol errors like file-not-found.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, sftp.ErrSSHFxConnectionLost) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection lost", "connection reset", "broken pipe", "socket is closed", "use of closed network connection", "eof"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
