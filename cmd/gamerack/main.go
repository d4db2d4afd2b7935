package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	servercmd "github.com/gamerack/gamerack/internal/cli/servercmd"
	synccmd "github.com/gamerack/gamerack/internal/cli/synccmd"
)

func main() {
	root := &cobra.Command{Use: "gamerack", Short: "gamerack library service CLI"}

	root.AddCommand(servercmd.New())
	root.AddCommand(synccmd.New())

	comp := &cobra.Command{Use: "completion [bash|zsh|fish|powershell]", Short: "Generate shell completion"}
	comp.Run = func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			log.Fatalf("specify a shell: bash|zsh|fish|powershell")
		}
		switch args[0] {
		case "bash":
			root.GenBashCompletion(os.Stdout)
		case "zsh":
			root.GenZshCompletion(os.Stdout)
		case "fish":
			root.GenFishCompletion(os.Stdout, true)
		case "powershell":
			root.GenPowerShellCompletionWithDesc(os.Stdout)
		default:
			log.Fatalf("unknown shell: %s", args[0])
		}
	}
	root.AddCommand(comp)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
