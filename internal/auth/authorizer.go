package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
)

var (
	codePrefixRegex = regexp.MustCompile(`^https?:.*code=`)
	stateRegex      = regexp.MustCompile(`[&?]+state=.*$`)
)

// ParseAuthorizationCode accepts either a bare code or the whole redirect
// URL pasted from the browser.
func ParseAuthorizationCode(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}

	if u, err := url.Parse(input); err == nil && u.Scheme != "" {
		if code := u.Query().Get("code"); code != "" {
			return code
		}
	}

	input = codePrefixRegex.ReplaceAllString(input, "")
	return strings.TrimSpace(stateRegex.ReplaceAllString(input, ""))
}

// ConsoleAuthorizer prints the consent URL and reads the code from a terminal.
type ConsoleAuthorizer struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewConsoleAuthorizer(in io.Reader, out io.Writer) *ConsoleAuthorizer {
	return &ConsoleAuthorizer{in: bufio.NewScanner(in), out: out}
}

// AuthorizationCode blocks until a non-empty code is entered or ctx ends.
func (a *ConsoleAuthorizer) AuthorizationCode(ctx context.Context, authURL string) (string, error) {
	fmt.Fprintf(a.out, "Please visit the following URL to authorize the application:\n%s\n", authURL)

	type result struct {
		code string
		err  error
	}
	lines := make(chan result, 1)

	go func() {
		for {
			fmt.Fprint(a.out, "Enter the authorization code or the redirected URL: ")
			if !a.in.Scan() {
				err := a.in.Err()
				if err == nil {
					err = io.ErrUnexpectedEOF
				}
				lines <- result{err: err}
				return
			}
			if code := ParseAuthorizationCode(a.in.Text()); code != "" {
				lines <- result{code: code}
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-lines:
		if res.err != nil {
			return "", fmt.Errorf("failed to read authorization code: %w", res.err)
		}
		return res.code, nil
	}
}
