package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/loot-sort/loot/internal/metadata"
	"github.com/loot-sort/loot/internal/sorter"
)

var (
	colorSuccess = color.New(color.FgGreen)
	colorWarn    = color.New(color.FgYellow)
	colorError   = color.New(color.FgRed)
	colorBold    = color.New(color.Bold)
)

func say(format string, args ...any) {
	colorSuccess.Fprintf(os.Stdout, format+"\n", args...)
}

func warn(format string, args ...any) {
	colorWarn.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

func fail(format string, args ...any) {
	colorError.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

// printMessages renders Message values (spec §3 "Message") the way the
// masterlist/userlist attach them to plugins or emit them globally.
func printMessages(messages []metadata.Message) {
	for _, msg := range messages {
		text := messageText(msg)
		switch msg.Type {
		case metadata.MessageError:
			colorError.Fprintln(os.Stderr, text)
		case metadata.MessageWarn:
			colorWarn.Fprintln(os.Stderr, text)
		default:
			fmt.Println(text)
		}
	}
}

func messageText(msg metadata.Message) string {
	for _, c := range msg.Content {
		if c.Language == metadata.EnglishLanguage {
			return c.Text
		}
	}
	if len(msg.Content) > 0 {
		return msg.Content[0].Text
	}
	return ""
}

func printDiagnostics(diags []sorter.Diagnostic) {
	for _, d := range diags {
		if d.Severity == sorter.DiagnosticError {
			colorError.Fprintln(os.Stderr, d.Message)
		} else {
			colorWarn.Fprintln(os.Stderr, d.Message)
		}
	}
}
