package a

import "os/exec"

type wrapper struct {
	cmd *exec.Cmd
}

func (wrapper) Run() error { return nil }

func f() {
	cmd := exec.Command("plantuml")
	_ = cmd.Start()           // want `do not call cmd.Start\(\) directly, use execsupport.Start\(cmd\) instead`
	_ = cmd.Run()             // want `do not call cmd.Run\(\) directly, use execsupport.Run\(cmd\) instead`
	_, _ = cmd.Output()       // want `do not call cmd.Output\(\) directly`
	_, _ = cmd.CombinedOutput() // want `do not call cmd.CombinedOutput\(\) directly`
	w := wrapper{cmd: cmd}
	_ = w.cmd.Run() // want `do not call w.cmd.Run\(\) directly, use execsupport.Run\(w.cmd\) instead`
	_ = w.Run()
	_ = cmd.Wait()
}
