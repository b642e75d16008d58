// Command cser generates paired Store/Load serializer functions for
// C-family struct and typedef declarations: a big-endian binary wire
// format and a tag-based structured-document format.
package main

import (
	"context"
	"io"
	"os"
	"path"

	"flag"
	log "github.com/golang/glog"
	"github.com/google/subcommands"
)

const groupGenerate = "generating serializer code"
const groupOther = "working with this tool"

func main() {
	ctx := context.Background()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))

	defaultExplain := commander.Explain
	commander.Explain = func(w io.Writer) {
		io.WriteString(w, "cser emits Store/Load serializer functions for C-family struct declarations.\n\n")
		defaultExplain(w)
	}

	commander.Register(generateCommand(), groupGenerate)

	commander.Register(commander.HelpCommand(), groupOther)
	commander.Register(commander.FlagsCommand(), groupOther)
	commander.Register(versionCommand(), groupOther)

	flag.Usage = func() {
		commander.HelpCommand().Execute(ctx, flag.CommandLine)
	}

	flag.Parse()

	code := int(commander.Execute(ctx))
	log.Flush()
	os.Exit(code)
}
