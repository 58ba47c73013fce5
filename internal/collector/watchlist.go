package collector

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ExchangeSuffix is appended to bare IDX tickers.
const ExchangeSuffix = ".JK"

// NormalizeTicker upper-cases a ticker and appends the exchange suffix.
// Index symbols starting with ^ are left unsuffixed.
func NormalizeTicker(s string) string {
	t := strings.ToUpper(strings.TrimSpace(s))
	if t == "" || strings.HasPrefix(t, "^") || strings.HasSuffix(t, ExchangeSuffix) {
		return t
	}
	return t + ExchangeSuffix
}

// ParseWatchlist reads one ticker per line, skipping blanks and # comments.
// A leading UTF-8 or UTF-16 byte order mark selects the decoding.
func ParseWatchlist(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, NormalizeTicker(line))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read watchlist: %w", err)
	}
	return out, nil
}

// ErrInvalidWatchlist is returned for watchlist names that are not a plain file stem.
var ErrInvalidWatchlist = errors.New("invalid watchlist name")

// LoadWatchlist resolves nameOrPath as an existing file, or as <dir>/<name>.txt.
// It is meant for local callers; remote input goes through LoadNamedWatchlist.
func LoadWatchlist(dir, nameOrPath string) ([]string, error) {
	if info, err := os.Stat(nameOrPath); err == nil && !info.IsDir() {
		return loadWatchlistFile(nameOrPath, nameOrPath)
	}
	return LoadNamedWatchlist(dir, nameOrPath)
}

// LoadNamedWatchlist reads <dir>/<name>.txt. Names containing a path
// separator or dot segments are rejected without touching the filesystem.
func LoadNamedWatchlist(dir, name string) ([]string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") || filepath.IsAbs(name) {
		return nil, fmt.Errorf("watchlist %q: %w", name, ErrInvalidWatchlist)
	}
	return loadWatchlistFile(filepath.Join(dir, name+".txt"), name)
}

func loadWatchlistFile(path, label string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("watchlist %q: %w", label, err)
	}
	defer f.Close()
	return ParseWatchlist(f)
}

// ListWatchlists returns the names of the .txt files in dir.
func ListWatchlists(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".txt"))
	}
	sort.Strings(names)
	return names, nil
}
