package tools

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"google.golang.org/genai"
)

const sshTimeout = 30 * time.Second

// SSHTool runs commands and reads files on remote hosts over SSH.
// Authentication uses the user's default key files.
type SSHTool struct{}

func (t *SSHTool) Name() string { return "ssh" }

func (t *SSHTool) Description() string {
	return "Run a command or read a file on a remote host over SSH"
}

func (t *SSHTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"host": {
					Type:        genai.TypeString,
					Description: "Remote host, optionally user@host or host:port",
				},
				"command": {
					Type:        genai.TypeString,
					Description: "Command to run remotely (mutually exclusive with read_path)",
				},
				"read_path": {
					Type:        genai.TypeString,
					Description: "Remote file to read instead of running a command",
				},
			},
			Required: []string{"host"},
		},
	}
}

func (t *SSHTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	host, _ := GetString(args, "host")
	if host == "" {
		return "", fmt.Errorf("host is required")
	}
	command, _ := GetString(args, "command")
	readPath, _ := GetString(args, "read_path")
	if command == "" && readPath == "" {
		return "", fmt.Errorf("either command or read_path is required")
	}

	conn, err := dialSSH(ctx, host)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	if readPath != "" {
		return readRemoteFile(conn, readPath)
	}
	return runRemoteCommand(ctx, conn, command)
}

// dialSSH connects to user@host:port with key-based auth.
func dialSSH(ctx context.Context, target string) (*ssh.Client, error) {
	user := os.Getenv("USER")
	if at := strings.Index(target, "@"); at >= 0 {
		user = target[:at]
		target = target[at+1:]
	}
	if !strings.Contains(target, ":") {
		target += ":22"
	}

	auth, err := defaultKeyAuth()
	if err != nil {
		return nil, err
	}

	config := &ssh.ClientConfig{
		User: user,
		Auth: auth,
		// TODO: verify against ~/.ssh/known_hosts instead of
		// trusting whatever key the host presents.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         sshTimeout,
	}

	dialer := net.Dialer{Timeout: sshTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, target, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake failed: %w", err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// defaultKeyAuth loads the usual private keys from ~/.ssh.
func defaultKeyAuth() ([]ssh.AuthMethod, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	var methods []ssh.AuthMethod
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		key, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			continue
		}
		methods = append(methods, ssh.PublicKeys(signer))
		break
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no usable SSH key found in ~/.ssh")
	}
	return methods, nil
}

func runRemoteCommand(ctx context.Context, conn *ssh.Client, command string) (string, error) {
	session, err := conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return "", ctx.Err()
	case err := <-done:
		output := stdout.String()
		if stderr.Len() > 0 {
			if output != "" {
				output += "\nSTDERR:\n"
			}
			output += stderr.String()
		}
		output = truncateOutput(output)

		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				return fmt.Sprintf("command exited with status %d:\n%s", exitErr.ExitStatus(), output), nil
			}
			return "", fmt.Errorf("command failed: %w", err)
		}
		if output == "" {
			return "(no output)", nil
		}
		return output, nil
	}
}

func readRemoteFile(conn *ssh.Client, path string) (string, error) {
	sftpClient, err := sftp.NewClient(conn)
	if err != nil {
		return "", fmt.Errorf("failed to open sftp session: %w", err)
	}
	defer sftpClient.Close()

	f, err := sftpClient.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxReadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
