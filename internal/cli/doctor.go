package cli

import (
	"context"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/deacon-dev/deacon/internal/docker"
	"github.com/deacon-dev/deacon/internal/output"
	"github.com/deacon-dev/deacon/internal/selinux"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the local environment for everything deacon needs",
	RunE:  runDoctor,
}

type doctorCheck struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	checks := doctor(ctx)

	if output.IsJSON() {
		return output.JSON(struct {
			Checks []doctorCheck `json:"checks"`
		}{checks})
	}

	allOK := true
	for _, c := range checks {
		status := "ok"
		if !c.OK {
			status = "FAIL"
			allOK = false
		}
		output.Print("[%s] %-28s %s", status, c.Name, c.Detail)
	}
	if !allOK {
		output.Warning("one or more checks failed")
	}
	return nil
}

func doctor(ctx context.Context) []doctorCheck {
	var checks []doctorCheck

	cli, err := docker.NewClient()
	if err != nil {
		checks = append(checks, doctorCheck{Name: "docker client", OK: false, Detail: err.Error()})
		return checks
	}
	defer cli.Close()

	if err := cli.Ping(ctx); err != nil {
		checks = append(checks, doctorCheck{Name: "docker daemon reachable", OK: false, Detail: err.Error()})
	} else {
		checks = append(checks, doctorCheck{Name: "docker daemon reachable", OK: true})
	}

	if version, err := cli.ServerVersion(ctx); err != nil {
		checks = append(checks, doctorCheck{Name: "docker server version", OK: false, Detail: err.Error()})
	} else {
		checks = append(checks, doctorCheck{Name: "docker server version", OK: true, Detail: version})
	}

	if info, err := cli.Info(ctx); err != nil {
		checks = append(checks, doctorCheck{Name: "docker system info", OK: false, Detail: err.Error()})
	} else {
		checks = append(checks, doctorCheck{
			Name:   "docker system info",
			OK:     true,
			Detail: info.OSType + "/" + info.Architecture,
		})
	}

	if runtime.GOOS == "linux" {
		if mode, err := selinux.GetMode(); err != nil {
			checks = append(checks, doctorCheck{Name: "selinux", OK: false, Detail: err.Error()})
		} else {
			checks = append(checks, doctorCheck{Name: "selinux", OK: true, Detail: string(mode)})
		}
	}

	return checks
}
