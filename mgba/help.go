package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gbaagent/mgba/mgbaprotocol"
)

// helpTopics maps a REPL command to its detailed help text.
var helpTopics = map[string]string{
	"press": `press KEY [HOLD]
  Press KEY, hold it for HOLD, then release it. HOLD is a duration such
  as 250ms or 1s, or a bare number of milliseconds. Without HOLD the
  configured input.hold is used. A bare key name is the same as press:
    press START
    a 300`,

	"tap": `tap KEY KEY ...
  Press each key in turn with the configured hold, waiting input.gap
  between presses:
    tap DOWN DOWN A`,

	"down": `down KEY
  Press KEY and keep it held until 'up KEY'.`,

	"up": `up KEY
  Release a key held with 'down KEY'.`,

	"shot": `shot [PATH]
  Ask the emulator to write a screenshot. Without PATH a uniquely named
  PNG is created in the configured screenshots.dir. Prints the path and
  the image size.`,

	"keys": `keys
  List the key names and their protocol codes.`,
}

// printHelp prints the overview, or the help for one topic.
func printHelp(w io.Writer, topic string) {
	if topic == "" {
		printHelpOverview(w)
		return
	}
	if topic == "screenshot" {
		topic = "shot"
	}

	text, ok := helpTopics[topic]
	if !ok {
		fmt.Fprintf(w, "No help for '%s'. Topics: %s\n", topic, strings.Join(helpTopicNames(), ", "))
		return
	}
	fmt.Fprintln(w, text)
}

func printHelpOverview(w io.Writer) {
	fmt.Fprint(w, `Commands:
  press KEY [HOLD]   Press and release a key (or just type the key name)
  tap KEY ...        Press several keys in order
  down KEY           Hold a key
  up KEY             Release a key
  shot [PATH]        Capture the screen
  keys               List key names
  .help [TOPIC]      Show help
  .quit              Exit

`)
	fmt.Fprintf(w, "Keys: %s\n", strings.Join(keyNames(), " "))
}

func helpTopicNames() []string {
	names := make([]string, 0, len(helpTopics))
	for name := range helpTopics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func keyNames() []string {
	keys := mgbaprotocol.AllKeys()
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return names
}

// printKeys prints the key table.
func printKeys(w io.Writer) {
	for _, k := range mgbaprotocol.AllKeys() {
		fmt.Fprintf(w, "%-7s %d\n", k, int32(k))
	}
}
