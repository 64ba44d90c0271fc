package suspension

import (
	"testing"

	"github.com/chewxy/math32"

	"driftpursuit/dynamics/internal/tire"
)

const fzRef float32 = 1350 * 9.81 / 4

func TestApplyLoadTransferConservesAxleLoad(t *testing.T) {
	normals := map[tire.WheelId]float32{tire.WheelFL: 4000, tire.WheelFR: 2600}
	compressions := map[tire.WheelId]float32{tire.WheelFL: 0.6, tire.WheelFR: 0.3}
	before := normals[tire.WheelFL] + normals[tire.WheelFR]

	ApplyLoadTransfer(FrontAxle, normals, compressions, 18000, fzRef)

	//1.- The compressed side sheds load to its partner.
	if normals[tire.WheelFL] >= 4000 {
		t.Fatalf("compressed side should shed load, got %.1f", normals[tire.WheelFL])
	}
	if normals[tire.WheelFR] <= 2600 {
		t.Fatalf("partner should gain load, got %.1f", normals[tire.WheelFR])
	}

	//2.- The axle total is conserved when no clamp to zero occurs.
	after := normals[tire.WheelFL] + normals[tire.WheelFR]
	if math32.Abs(after-before) > before*1e-3 {
		t.Fatalf("axle load not conserved: before=%.1f after=%.1f", before, after)
	}
}

func TestApplyLoadTransferSaturates(t *testing.T) {
	normals := map[tire.WheelId]float32{tire.WheelRL: 5000, tire.WheelRR: 5000}
	compressions := map[tire.WheelId]float32{tire.WheelRL: 1.0, tire.WheelRR: 0.0}

	//1.- A huge compression delta is bounded by the saturation cap.
	ApplyLoadTransfer(RearAxle, normals, compressions, 1e6, fzRef)
	maxTransfer := 0.4 * fzRef
	if math32.Abs(normals[tire.WheelRL]-(5000-maxTransfer)) > 1 {
		t.Fatalf("saturation cap not applied: %.1f", normals[tire.WheelRL])
	}
}

func TestApplyLoadTransferSkipsMissingWheel(t *testing.T) {
	normals := map[tire.WheelId]float32{tire.WheelFL: 4000}
	compressions := map[tire.WheelId]float32{tire.WheelFL: 0.6}

	//1.- A lifted wheel leaves the bar inactive.
	ApplyLoadTransfer(FrontAxle, normals, compressions, 18000, fzRef)
	if normals[tire.WheelFL] != 4000 {
		t.Fatalf("bar should skip when a wheel is missing")
	}
}

func TestApplyLoadTransferSkipsTinyDelta(t *testing.T) {
	normals := map[tire.WheelId]float32{tire.WheelFL: 3300, tire.WheelFR: 3300}
	compressions := map[tire.WheelId]float32{tire.WheelFL: 0.40001, tire.WheelFR: 0.4}

	ApplyLoadTransfer(FrontAxle, normals, compressions, 18000, fzRef)
	if normals[tire.WheelFL] != 3300 || normals[tire.WheelFR] != 3300 {
		t.Fatalf("tiny delta should not move load")
	}
}

func TestApplyLoadTransferLoadScaling(t *testing.T) {
	//1.- A lightly loaded axle transfers proportionally less.
	lightNormals := map[tire.WheelId]float32{tire.WheelFL: 400, tire.WheelFR: 200}
	heavyNormals := map[tire.WheelId]float32{tire.WheelFL: 4000, tire.WheelFR: 2000}
	compressions := map[tire.WheelId]float32{tire.WheelFL: 0.5, tire.WheelFR: 0.4}

	ApplyLoadTransfer(FrontAxle, lightNormals, compressions, 18000, fzRef)
	ApplyLoadTransfer(FrontAxle, heavyNormals, compressions, 18000, fzRef)

	lightTransfer := 400 - lightNormals[tire.WheelFL]
	heavyTransfer := 4000 - heavyNormals[tire.WheelFL]
	if lightTransfer >= heavyTransfer {
		t.Fatalf("light axle should transfer less: light=%.1f heavy=%.1f", lightTransfer, heavyTransfer)
	}
}

func TestApplyLoadTransferNeverNegative(t *testing.T) {
	normals := map[tire.WheelId]float32{tire.WheelFL: 100, tire.WheelFR: 3000}
	compressions := map[tire.WheelId]float32{tire.WheelFL: 0.9, tire.WheelFR: 0.1}

	ApplyLoadTransfer(FrontAxle, normals, compressions, 1e6, fzRef)
	if normals[tire.WheelFL] < 0 || normals[tire.WheelFR] < 0 {
		t.Fatalf("normals must never go negative: %v", normals)
	}
}
