package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/imamik/hostprep/internal/util/retry"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultMaxRetries  = 5
	defaultRetryDelay  = 2 * time.Second
	defaultMaxDelay    = 10 * time.Second
)

// exitCodeUnknown is reported when the remote side closed the session
// without sending an exit status.
const exitCodeUnknown = -1

// Config holds SSH client configuration.
type Config struct {
	Host string
	Port int
	User string

	// PrivateKey is a PEM encoded private key. Optional when Password or
	// UseAgent provide another way to authenticate.
	PrivateKey []byte
	// Passphrase decrypts PrivateKey, if it is encrypted.
	Passphrase []byte
	// Password enables password authentication.
	Password string
	// UseAgent adds the keys of the agent listening on SSH_AUTH_SOCK.
	UseAgent bool

	// KnownHostsFile enables host key verification against an OpenSSH
	// known_hosts file. Ignored when HostKeyCallback is set.
	KnownHostsFile string
	// HostKeyCallback handles host key verification. If nil and no
	// KnownHostsFile is given, host keys are not verified.
	HostKeyCallback ssh.HostKeyCallback

	// DialTimeout is the timeout for establishing the TCP connection.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration
	// MaxRetries is the maximum number of connection retry attempts.
	// If zero, defaultMaxRetries is used.
	MaxRetries int
	// RetryDelay is the initial delay between retry attempts.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Client executes commands on a remote server via SSH.
type Client struct {
	config *Config
	auth   []ssh.AuthMethod

	mu        sync.Mutex
	conn      *ssh.Client
	agentConn net.Conn
}

// NewClient validates cfg, applies defaults and prepares authentication.
// No connection is made until Connect or the first Exec.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 && cfg.Password == "" && !cfg.UseAgent {
		return nil, fmt.Errorf("config needs a private key, a password or an ssh agent")
	}

	configCopy := *cfg
	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.MaxRetries == 0 {
		configCopy.MaxRetries = defaultMaxRetries
	}
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}
	if configCopy.HostKeyCallback == nil {
		if configCopy.KnownHostsFile != "" {
			cb, err := knownhosts.New(configCopy.KnownHostsFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load known hosts: %w", err)
			}
			configCopy.HostKeyCallback = cb
		} else {
			configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // freshly created hosts have no known key yet
		}
	}

	c := &Client{config: &configCopy}

	if len(configCopy.PrivateKey) > 0 {
		signer, err := parsePrivateKey(configCopy.PrivateKey, configCopy.Passphrase)
		if err != nil {
			return nil, err
		}
		c.auth = append(c.auth, ssh.PublicKeys(signer))
	}
	if configCopy.UseAgent {
		signers, conn, err := agentSigners()
		if err != nil {
			return nil, err
		}
		c.agentConn = conn
		c.auth = append(c.auth, ssh.PublicKeysCallback(signers))
	}
	if configCopy.Password != "" {
		c.auth = append(c.auth, ssh.Password(configCopy.Password))
	}
	return c, nil
}

func parsePrivateKey(pem, passphrase []byte) (ssh.Signer, error) {
	var (
		signer ssh.Signer
		err    error
	)
	if len(passphrase) > 0 {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, passphrase)
	} else {
		signer, err = ssh.ParsePrivateKey(pem)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return signer, nil
}

func agentSigners() (func() ([]ssh.Signer, error), net.Conn, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, nil, fmt.Errorf("ssh agent requested but SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to ssh agent: %w", err)
	}
	return agent.NewClient(conn).Signers, conn, nil
}

// Connect establishes the connection if it is not open yet.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.client(ctx)
	return err
}

func (c *Client) client(ctx context.Context) (*ssh.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

// dial establishes the SSH connection with retry logic. Authentication
// failures are not retried.
func (c *Client) dial(ctx context.Context) (*ssh.Client, error) {
	log := logr.FromContextOrDiscard(ctx)
	config := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            c.auth,
		HostKeyCallback: c.config.HostKeyCallback,
		Timeout:         c.config.DialTimeout,
	}
	addr := c.config.Addr()

	policy := retry.DefaultPolicy()
	policy.Retries = c.config.MaxRetries
	policy.Initial = c.config.RetryDelay
	policy.Max = defaultMaxDelay
	policy.OnRetry = func(a retry.Attempt) {
		log.Info("ssh connection failed, retrying", "addr", addr, "attempt", a.Number, "wait", a.Wait, "error", a.Err.Error())
	}

	var client *ssh.Client
	err := policy.Do(ctx, func(context.Context) error {
		var dialErr error
		client, dialErr = ssh.Dial("tcp", addr, config)
		if dialErr != nil && isPermanent(dialErr) {
			return retry.Permanent(dialErr)
		}
		return dialErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}

	log.V(1).Info("ssh connection established", "addr", addr, "user", c.config.User)
	return client, nil
}

// isPermanent reports dial errors retrying cannot fix.
func isPermanent(err error) bool {
	var keyErr *knownhosts.KeyError
	if errors.As(err, &keyErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "knownhosts:")
}

// Exec runs command in a new session and returns its exit code and combined
// stdout and stderr. A non-zero exit is not an error.
func (c *Client) Exec(ctx context.Context, command string) (int, string, error) {
	conn, err := c.client(ctx)
	if err != nil {
		return exitCodeUnknown, "", err
	}

	session, err := conn.NewSession()
	if err != nil {
		return exitCodeUnknown, "", fmt.Errorf("failed to create SSH session on %s: %w", c.config.Host, err)
	}
	defer func() { _ = session.Close() }()

	type result struct {
		output []byte
		err    error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(command)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		_ = session.Close()
		return exitCodeUnknown, "", ctx.Err()
	case res := <-done:
		return exitStatus(string(res.output), res.err)
	}
}

func exitStatus(output string, err error) (int, string, error) {
	if err == nil {
		return 0, output, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), output, nil
	}
	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		return exitCodeUnknown, output, fmt.Errorf("remote command exited without status: %w", err)
	}
	return exitCodeUnknown, output, fmt.Errorf("failed to run command: %w", err)
}

// Close closes the connection and the agent socket.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
		c.conn = nil
	}
	if c.agentConn != nil {
		errs = append(errs, c.agentConn.Close())
		c.agentConn = nil
	}
	return errors.Join(errs...)
}
