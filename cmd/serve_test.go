package cmd

import "testing"

func TestServeCommandFlags(t *testing.T) {
	if err := serveCmd.ParseFlags([]string{"--no-sweep", "--addr", ":9090"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	noSweep, err := serveCmd.Flags().GetBool("no-sweep")
	if err != nil || !noSweep {
		t.Fatalf("expected --no-sweep to be set, got %v, %v", noSweep, err)
	}
	if serveCmd.Run == nil {
		t.Fatal("serve command has no run function")
	}

	found := false
	for _, c := range rootCmd.Commands() {
		if c == serveCmd {
			found = true
		}
	}
	if !found {
		t.Fatal("serve command is not registered on the root command")
	}
}
