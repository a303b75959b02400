// Package fleet runs one device operation across many intercoms.
//
// Targets are single addresses or CIDR networks. ExpandTargets turns them
// into an ordered, de-duplicated host list, and Runner executes a Task
// against every host with a bounded number of concurrent workers:
//
//	hosts, err := fleet.ExpandTargets([]string{"10.0.0.0/30", "10.0.0.9"})
//	report := fleet.Runner{Workers: 8}.Run(ctx, hosts, task)
//	for _, r := range report.Failed() {
//		fmt.Println(r.Host, r.Err)
//	}
//
// Results preserve the order of the input hosts regardless of completion
// order. A failing host never aborts the sweep.
package fleet
