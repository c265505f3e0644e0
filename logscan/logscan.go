// Package logscan summarizes the daily security and error logs written by utils.InitLogger.
package logscan

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Report is the summary of one day of logs
type Report struct {
	Date                string
	SignatureFailures   int
	AmountMismatches    int
	LoginFailures       int
	BlockedLogins       int
	OTPRejections       int
	Refunds             int
	AdminAccessDenied   int
	TotalErrors         int
	SignatureSourcesIPs map[string]int
	ErrorPatterns       map[string]int
}

// Count is one entry of a ranked list
type Count struct {
	Key   string
	Count int
}

var (
	ipRegex     = regexp.MustCompile(`from (\d{1,3}(?:\.\d{1,3}){3}|[0-9a-fA-F:]+:[0-9a-fA-F:]+)`)
	digitsRegex = regexp.MustCompile(`\d+`)
	quotedRegex = regexp.MustCompile(`"[^"]*"`)
)

// Analyze reads security-<date>.log and error-<date>.log from dir.
// A missing file is treated as empty.
func Analyze(dir, date string) (*Report, error) {
	report := &Report{
		Date:                date,
		SignatureSourcesIPs: make(map[string]int),
		ErrorPatterns:       make(map[string]int),
	}
	if err := scanFile(filepath.Join(dir, fmt.Sprintf("security-%s.log", date)), report.addSecurityLine); err != nil {
		return nil, err
	}
	if err := scanFile(filepath.Join(dir, fmt.Sprintf("error-%s.log", date)), report.addErrorLine); err != nil {
		return nil, err
	}
	return report, nil
}

func scanFile(path string, fn func(string)) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return scan(file, fn)
}

func scan(r io.Reader, fn func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	return scanner.Err()
}

func (r *Report) addSecurityLine(line string) {
	switch {
	case strings.Contains(line, "Invalid PayHere signature"):
		r.SignatureFailures++
		if m := ipRegex.FindStringSubmatch(line); m != nil {
			r.SignatureSourcesIPs[m[1]]++
		}
	case strings.Contains(line, "Amount mismatch"):
		r.AmountMismatches++
	case strings.Contains(line, "Login failed"):
		r.LoginFailures++
	case strings.Contains(line, "attempted login"):
		r.BlockedLogins++
	case strings.Contains(line, "Refund OTP rejected"):
		r.OTPRejections++
	case strings.Contains(line, "refunded order"):
		r.Refunds++
	case strings.Contains(line, "attempted admin access"):
		r.AdminAccessDenied++
	}
}

func (r *Report) addErrorLine(line string) {
	// security events are mirrored into the error log and counted from the security log
	if strings.Contains(line, "security event:") {
		return
	}
	r.TotalErrors++
	if pattern := errorPattern(line); pattern != "" {
		r.ErrorPatterns[pattern]++
	}
}

// errorPattern strips the log prefix and variable parts so similar errors group together
func errorPattern(line string) string {
	// "ERROR: 2026/01/02 15:04:05 file.go:12: message"
	parts := strings.SplitN(line, ": ", 3)
	msg := parts[len(parts)-1]
	msg = quotedRegex.ReplaceAllString(msg, `"?"`)
	msg = digitsRegex.ReplaceAllString(msg, "N")
	if i := strings.Index(msg, ": "); i > 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}

// Top returns the n largest entries of counts, ties broken by key
func Top(counts map[string]int, n int) []Count {
	list := make([]Count, 0, len(counts))
	for k, v := range counts {
		list = append(list, Count{Key: k, Count: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Key < list[j].Key
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}

// Print writes a human readable report
func (r *Report) Print(w io.Writer) {
	fmt.Fprintln(w, "\n=== Log Analysis Report ===")
	fmt.Fprintln(w, "Date:", r.Date)

	fmt.Fprintln(w, "\n1. Payment Gateway:")
	fmt.Fprintf(w, "   Invalid Signatures: %d\n", r.SignatureFailures)
	fmt.Fprintf(w, "   Amount Mismatches: %d\n", r.AmountMismatches)
	for _, c := range Top(r.SignatureSourcesIPs, 5) {
		fmt.Fprintf(w, "   %s: %d invalid notifications\n", c.Key, c.Count)
	}

	fmt.Fprintln(w, "\n2. Authentication:")
	fmt.Fprintf(w, "   Failed Logins: %d\n", r.LoginFailures)
	fmt.Fprintf(w, "   Blocked Account Logins: %d\n", r.BlockedLogins)
	fmt.Fprintf(w, "   Denied Admin Access: %d\n", r.AdminAccessDenied)

	fmt.Fprintln(w, "\n3. Refunds:")
	fmt.Fprintf(w, "   Refunds Issued: %d\n", r.Refunds)
	fmt.Fprintf(w, "   Rejected OTPs: %d\n", r.OTPRejections)

	fmt.Fprintln(w, "\n4. Errors:")
	fmt.Fprintf(w, "   Total Errors: %d\n", r.TotalErrors)
	for _, c := range Top(r.ErrorPatterns, 5) {
		fmt.Fprintf(w, "   %s: %d occurrences\n", c.Key, c.Count)
	}
}
