// Command irmin-client is a thin CLI wrapper around package client,
// exercising the commands most useful from a shell: ping, get, set,
// and branch listing. CLI wrapping is explicitly out of scope for the
// core (§1); this is the minimal glue the teacher repo would put
// around its own protocol client.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/icristescu/irmin-server/client"
	"github.com/icristescu/irmin-server/model"
)

const (
	cfgURI = "uri"
	cfgTLS = "tls"
)

var rootFlags = flag.NewFlagSet("", flag.ContinueOnError)

var rootCmd = &cobra.Command{
	Use:   "irmin-client",
	Short: "drive a remote irmin-server repository",
}

func dial() (*client.Client, error) {
	return client.Dial(client.Config{
		URI: viper.GetString(cfgURI),
		TLS: viper.GetBool(cfgTLS),
	})
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "check connectivity",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := dial()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		if err := c.Ping(); err != nil {
			fail(err)
		}
		fmt.Println("ok")
	},
}

var getCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "read the contents at path on the current branch",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := dial()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		v, ok, err := c.Find(model.ParsePath(args[0]))
		if err != nil {
			fail(err)
		}
		if !ok {
			fmt.Println("<absent>")
			return
		}
		fmt.Println(string(v))
	},
}

var setCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "write contents at path, producing a new commit",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := dial()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		info := model.Info{Author: "irmin-client", Message: "set via cli", Timestamp: time.Now().Unix()}
		if err := c.Set(model.ParsePath(args[0]), info, model.Contents(args[1])); err != nil {
			fail(err)
		}
		fmt.Println("ok")
	},
}

var branchesCmd = &cobra.Command{
	Use:   "branches",
	Short: "list every branch in the repo",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := dial()
		if err != nil {
			fail(err)
		}
		defer c.Close()
		names, err := c.Branches().List()
		if err != nil {
			fail(err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
	},
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func init() {
	rootFlags.String(cfgURI, "unix:///tmp/irmin-server.sock", "server uri (unix://path or tcp://host:port)")
	rootFlags.Bool(cfgTLS, false, "connect over TLS")
	rootCmd.PersistentFlags().AddFlagSet(rootFlags)
	_ = viper.BindPFlags(rootFlags)

	rootCmd.AddCommand(pingCmd, getCmd, setCmd, branchesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
