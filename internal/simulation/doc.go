// Package simulation provides an end-to-end test harness for the
// identification pipeline.
//
// Scenarios exercise the real generator, correlation, detectors, and
// SQLite store, no mocks. A scenario either generates a synthetic motor
// pool or supplies an explicit activity matrix with ground-truth
// labels, runs identification, scores the recovered partition against
// the truth, and persists the run the way the CLI would.
//
// Each test gets an isolated store via t.TempDir().
//
// Usage:
//
//	func TestSeparatedUnits(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:     "separated-units",
//	        Activity: activity,
//	        Truth:    truth,
//	        Identify: identify.Options{Optimise: constants.OptimiseNComm},
//	    })
//	    simulation.AssertAccuracyAbove(t, result, 0.9)
//	}
package simulation
