package core

import "testing"

func TestVersionForkControllerPassesAtSupermajority(t *testing.T) {
	t.Parallel()

	witnesses := make([]Address, 10)
	for i := range witnesses {
		witnesses[i] = BytesToAddress([]byte{byte(i)})
	}
	vf := NewVersionForkController(witnesses)

	if vf.PassVersion(UpgradeConstantinople) {
		t.Fatalf("upgrade should not pass before any witness reports a version")
	}

	// 70 of 100 is the threshold; with 10 witnesses, 7 at/above MinVersion
	// reaches SolidThresholdPercent (70%).
	for i := 0; i < 7; i++ {
		vf.ReportBlockVersion(witnesses[i], UpgradeConstantinople.MinVersion)
	}
	if !vf.PassVersion(UpgradeConstantinople) {
		t.Fatalf("upgrade should pass once %d%% of active witnesses reported the min version", SolidThresholdPercent)
	}
}

func TestVersionForkControllerFailsBelowThreshold(t *testing.T) {
	t.Parallel()

	witnesses := make([]Address, 10)
	for i := range witnesses {
		witnesses[i] = BytesToAddress([]byte{byte(i)})
	}
	vf := NewVersionForkController(witnesses)
	for i := 0; i < 6; i++ {
		vf.ReportBlockVersion(witnesses[i], UpgradeConstantinople.MinVersion)
	}
	if vf.PassVersion(UpgradeConstantinople) {
		t.Fatalf("upgrade should not pass with only 60%% of witnesses reporting")
	}
}

func TestVersionForkControllerKeepsHighestVersionSeen(t *testing.T) {
	t.Parallel()

	w := BytesToAddress([]byte("w"))
	vf := NewVersionForkController([]Address{w})
	vf.ReportBlockVersion(w, 10)
	vf.ReportBlockVersion(w, 5) // must not regress

	if !vf.PassVersion(UpgradeCheckpoint{Name: "t", MinVersion: 10}) {
		t.Fatalf("a lower subsequently-reported version must not erase the prior highest version")
	}
}

func TestVersionForkControllerSetActiveWitnessesRotates(t *testing.T) {
	t.Parallel()

	w1 := BytesToAddress([]byte("w1"))
	w2 := BytesToAddress([]byte("w2"))
	vf := NewVersionForkController([]Address{w1})
	vf.ReportBlockVersion(w1, 100)
	if !vf.PassVersion(UpgradeConstantinople) {
		t.Fatalf("upgrade should pass with the sole active witness reporting")
	}

	vf.SetActiveWitnesses([]Address{w2})
	if vf.PassVersion(UpgradeConstantinople) {
		t.Fatalf("rotating the active roster should drop a witness's prior report from consideration")
	}
}

func TestVersionForkControllerEmptyRosterNeverPasses(t *testing.T) {
	t.Parallel()

	vf := NewVersionForkController(nil)
	if vf.PassVersion(UpgradeConstantinople) {
		t.Fatalf("an empty active-witness roster must never pass an upgrade")
	}
}
