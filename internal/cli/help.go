// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// help.go - The help command, rendered as markdown.

package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
)

const helpOverview = `# phonegate

Sign in with a phone number and a one-time code, from the terminal.

| Command | What it does |
|---|---|
| ` + "`phonegate`" + ` | Full-screen sign-in (default) |
| ` + "`phonegate login`" + ` | Sign in line by line |
| ` + "`phonegate logout`" + ` | Sign out |
| ` + "`phonegate status`" + ` | Session and platform status |
| ` + "`phonegate config`" + ` | Show or change settings |
| ` + "`phonegate outbox`" + ` | Codes sent by the local provider |

Run ` + "`phonegate help <topic>`" + ` for more. Topics: %s.
`

var helpTopics = map[string]string{
	"login": `# Signing in

1. Enter your 10-digit number. The country code (default **+91**) is added for you.
2. A 6-digit code is sent by text message.
3. Enter the code. On success you land on the home screen.

In the TUI, **esc** on the code step goes back to change the number.
In line mode, leave the code blank to do the same.

When the platform needs a human check, a prompt asks for the token the
challenge page shows.
`,
	"providers": `# Providers

- **local** runs everything on this machine. Codes are written to the
  outbox (` + "`phonegate outbox`" + `) or sent through SMS Local. Sessions are signed
  tokens kept in the data directory.
- **firebase** uses Firebase Authentication. Set ` + "`firebase.api_key`" + ` and the
  other project keys, or the ` + "`EXPO_PUBLIC_FIREBASE_*`" + ` variables.

Choose with ` + "`phonegate config set identity.provider firebase`" + `.
`,
	"config": `# Configuration

Settings live in ` + "`~/.phonegate/config.toml`" + ` (or ` + "`$PHONEGATE_HOME`" + `).

- ` + "`phonegate config init`" + ` writes the defaults
- ` + "`phonegate config get <key>`" + ` prints one value
- ` + "`phonegate config set <key> <value>`" + ` changes one value

Secrets are never printed. Environment variables named ` + "`PHONEGATE_*`" + `
override the file.
`,
	"outbox": `# Outbox

With the local provider and ` + "`local.sender = \"outbox\"`" + `, codes are not
sent anywhere. Each one is appended to ` + "`outbox.jsonl`" + ` in the data
directory. Read them from a second terminal:

    phonegate outbox --lines 5

Numbers are masked unless ` + "`--reveal`" + ` is given.
`,
}

// HandleHelp prints the guide, or one topic of it.
func HandleHelp(args Args) error {
	md, err := helpMarkdown(args.Subcommand)
	if err != nil {
		return err
	}
	fmt.Print(renderMarkdown(md))
	return nil
}

func helpMarkdown(topic string) (string, error) {
	topic = strings.ToLower(topic)
	if topic == "" {
		names := make([]string, 0, len(helpTopics))
		for name := range helpTopics {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Sprintf(helpOverview, strings.Join(names, ", ")), nil
	}
	md, ok := helpTopics[topic]
	if !ok {
		return "", &NotFoundError{Resource: "help topic", ID: topic}
	}
	return md, nil
}

// renderMarkdown renders md for the terminal, or returns it unchanged when
// rendering fails.
func renderMarkdown(md string) string {
	style := glamour.WithAutoStyle()
	if !ColorsEnabled() {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(GetTerminalWidth()-2))
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
