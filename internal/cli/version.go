package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/version"
)

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Current()
			fmt.Fprintf(e.out, "osfctl\n")
			fmt.Fprintf(e.out, "  Version:    %s\n", info.Version)
			fmt.Fprintf(e.out, "  Commit:     %s\n", info.GitCommit)
			fmt.Fprintf(e.out, "  Built:      %s\n", info.BuildTime)
			fmt.Fprintf(e.out, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(e.out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
