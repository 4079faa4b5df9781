package main

import (
	"bufio"
	"os"
	"strings"
)

// fileListLoadOrder is the CLI's own game.LoadOrderHandler: a plain
// one-name-per-line file of currently-active plugins, in load order.
// The actual per-game plugins.txt/loadorder.txt formats (and their
// enabled-marker conventions) are the load-order collaborator's concern
// per spec §6 and out of this tool's scope; this is a deliberately
// minimal stand-in so the CLI has something concrete to read an
// existing order from and persist a new one to.
type fileListLoadOrder struct {
	path string
}

func newFileListLoadOrder(localPath string) *fileListLoadOrder {
	return &fileListLoadOrder{path: localPath}
}

func (f *fileListLoadOrder) Init(gameType, gamePath, localPath string) error {
	f.path = localPath
	return nil
}

func (f *fileListLoadOrder) GetLoadOrder() ([]string, error) {
	if f.path == "" {
		return nil, nil
	}
	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var order []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		order = append(order, line)
	}
	return order, scanner.Err()
}

func (f *fileListLoadOrder) SetLoadOrder(order []string) error {
	if f.path == "" {
		return nil
	}
	var sb strings.Builder
	for _, name := range order {
		sb.WriteString(name)
		sb.WriteString("\n")
	}
	return os.WriteFile(f.path, []byte(sb.String()), 0644)
}

func (f *fileListLoadOrder) IsPluginActive(name string) (bool, error) {
	order, err := f.GetLoadOrder()
	if err != nil {
		return false, err
	}
	for _, n := range order {
		if strings.EqualFold(n, name) {
			return true, nil
		}
	}
	return false, nil
}
