// Package console is the terminal notifier and prompter of the CLI host.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrCancelled is returned when the user dismisses a prompt.
var ErrCancelled = errors.New("prompt cancelled")

type Console struct {
	mu  sync.Mutex
	out io.Writer
	in  *bufio.Reader
}

func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Message prints a transient notice.
func (c *Console) Message(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[*] %s\n", text)
}

// Alert prints a titled failure message.
func (c *Console) Alert(title, body string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[!] %s\n", title)
	for _, line := range strings.Split(body, "\n") {
		fmt.Fprintf(c.out, "    %s\n", line)
	}
}

// Success prints a final result line.
func (c *Console) Success(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[+++] %s\n", text)
}

// PromptAPIKey asks for a key. An empty answer or end of input cancels.
func (c *Console) PromptAPIKey(current string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if current != "" {
		fmt.Fprintf(c.out, "[?] Your current API key is: %s\n", current)
	} else {
		fmt.Fprintln(c.out, "[?] Find your API key on https://www.visualeyes.design")
	}
	fmt.Fprint(c.out, "[?] API key (empty to cancel): ")

	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return "", ErrCancelled
	}
	return key, nil
}
