package catalog

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// SampleMenu is written to a missing menu file so a fresh install has something to serve.
var SampleMenu = []Item{
	{ID: 1, Name: "Phở Bò", Price: 50000},
	{ID: 2, Name: "Cơm Tấm", Price: 40000},
	{ID: 3, Name: "Gỏi Cuốn", Price: 30000},
	{ID: 4, Name: "Bún Chả", Price: 50000},
	{ID: 5, Name: "Bánh Mì", Price: 20000},
}

// LoadFile reads a menu file with one "id;name;price" entry per line.
// If the file does not exist it is created with SampleMenu.
// Lines that cannot be parsed are skipped and logged.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := WriteFile(path, SampleMenu); err != nil {
			return nil, errors.Wrap(err, "write sample menu failed")
		}
		logger.WithField("path", path).Info("created sample menu")
		return New(SampleMenu...)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open menu file failed")
	}
	defer f.Close()

	var items []Item
	seen := make(map[int]bool)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		item, err := ParseLine(line)
		if err == nil && seen[item.ID] {
			err = errors.Wrapf(ErrInvalidItem, "duplicate item id %d", item.ID)
		}
		if err != nil {
			logger.WithFields(logrus.Fields{
				"path": path,
				"line": lineNo,
			}).WithError(err).Warn("skipping menu line")
			continue
		}
		seen[item.ID] = true
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read menu file failed")
	}
	logger.WithFields(logrus.Fields{
		"path":  path,
		"items": len(items),
	}).Info("loaded menu")
	return New(items...)
}

// ParseLine parses one "id;name;price" menu line.
func ParseLine(line string) (Item, error) {
	parts := strings.Split(line, ";")
	if len(parts) != 3 {
		return Item{}, errors.Wrapf(ErrInvalidItem, "want 3 fields, got %d", len(parts))
	}
	id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Item{}, errors.Wrap(ErrInvalidItem, "parse id failed")
	}
	price, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
	if err != nil {
		return Item{}, errors.Wrap(ErrInvalidItem, "parse price failed")
	}
	item := Item{ID: id, Name: strings.TrimSpace(parts[1]), Price: price}
	if err := item.Validate(); err != nil {
		return Item{}, err
	}
	return item, nil
}

// WriteFile writes items to path in the menu file format.
func WriteFile(path string, items []Item) error {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString(strconv.Itoa(item.ID))
		sb.WriteByte(';')
		sb.WriteString(item.Name)
		sb.WriteByte(';')
		sb.WriteString(strconv.FormatInt(item.Price, 10))
		sb.WriteByte('\n')
	}
	return errors.Wrap(os.WriteFile(path, []byte(sb.String()), 0o644), "write menu file failed")
}
