package execsupport

import "os/exec"

func Run(cmd *exec.Cmd) error {
	return cmd.Run()
}
