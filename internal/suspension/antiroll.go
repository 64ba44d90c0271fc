package suspension

import (
	"github.com/chewxy/math32"

	"driftpursuit/dynamics/internal/mathx"
	"driftpursuit/dynamics/internal/tire"
)

// AxlePair names the two wheels joined by one anti-roll bar.
type AxlePair struct {
	Left  tire.WheelId
	Right tire.WheelId
}

// FrontAxle and RearAxle are the two bars fitted to every chassis.
var (
	FrontAxle = AxlePair{Left: tire.WheelFL, Right: tire.WheelFR}
	RearAxle  = AxlePair{Left: tire.WheelRL, Right: tire.WheelRR}
)

// ApplyLoadTransfer redistributes normal force between the two wheels of one
// axle based on their compression difference. The transfer is scaled by the
// axle load so a lightly loaded bar cannot lift a wheel, and saturated at a
// fraction of the reference load. The sum of the two normals is conserved
// unless a clamp to zero fires.
func ApplyLoadTransfer(
	pair AxlePair,
	normals map[tire.WheelId]float32,
	compressions map[tire.WheelId]float32,
	stiffness float32,
	fzRef float32,
) {
	//1.- Both wheels must be grounded for the bar to act.
	cl, okL := compressions[pair.Left]
	cr, okR := compressions[pair.Right]
	if !okL || !okR {
		return
	}

	delta := cl - cr
	if math32.Abs(delta) < 1e-4 {
		return
	}

	//2.- Raw transfer proportional to the compression difference.
	transfer := stiffness * delta

	nl := normals[pair.Left]
	nr := normals[pair.Right]

	//3.- Scale by the axle load so the bar fades out when the axle goes light.
	load := (nl + nr) / math32.Max(2*fzRef, 1e-6)
	transfer *= mathx.Clamp(load, 0.3, 1.2)

	//4.- Saturate against the reference load.
	maxTransfer := 0.4 * fzRef
	transfer = mathx.Clamp(transfer, -maxTransfer, maxTransfer)

	//5.- Redistribute, never driving a wheel negative.
	normals[pair.Left] = math32.Max(nl-transfer, 0)
	normals[pair.Right] = math32.Max(nr+transfer, 0)
}
