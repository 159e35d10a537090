package estimator

import (
	"github.com/dezash123/drone/internal/config"
	"github.com/dezash123/drone/internal/imu"
)

// AxisFilter is a two state Kalman filter for one axis.
// State vector X: [angle, gyro bias]
// Measurement: the accelerometer angle
type AxisFilter struct {
	X *Matrix // (2x1) estimated state
	P *Matrix // (2x2) estimate error covariance
	Q *Matrix // (2x2) process noise per second
	R *Matrix // (1x1) measurement noise

	H *Matrix // (1x2) observation matrix
}

// NewAxisFilter creates a filter with zero angle and bias.
func NewAxisFilter(qAngle, qBias, rMeasure float64) *AxisFilter {
	return &AxisFilter{
		X: NewMatrix(2, 1),
		P: NewMatrix(2, 2),
		Q: FromRows([]float64{qAngle, 0}, []float64{0, qBias}),
		R: FromRows([]float64{rMeasure}),
		H: FromRows([]float64{1, 0}),
	}
}

// Angle returns the estimated angle.
func (kf *AxisFilter) Angle() float64 { return kf.X.At(0, 0) }

// Bias returns the estimated gyro bias.
func (kf *AxisFilter) Bias() float64 { return kf.X.At(1, 0) }

// SetAngle resets the angle, keeping the bias estimate.
func (kf *AxisFilter) SetAngle(angle float64) {
	kf.X.Set(0, 0, angle)
}

// Predict integrates the bias-corrected gyro rate over dt.
func (kf *AxisFilter) Predict(rate, dt float64) {
	// angle' = angle + (rate - bias) * dt
	f := FromRows([]float64{1, -dt}, []float64{0, 1})
	b := FromRows([]float64{dt}, []float64{0})
	kf.X = f.Multiply(kf.X).Add(b.Scale(rate))

	// P = F * P * F^T + Q * dt
	kf.P = f.Multiply(kf.P).Multiply(f.Transpose()).Add(kf.Q.Scale(dt))
}

// Update corrects the state with an accelerometer angle.
func (kf *AxisFilter) Update(angle float64) error {
	z := FromRows([]float64{angle})

	// Innovation y = z - H * x
	y := z.Subtract(kf.H.Multiply(kf.X))

	// S = H * P * H^T + R
	hT := kf.H.Transpose()
	sInv, err := kf.H.Multiply(kf.P).Multiply(hT).Add(kf.R).Inverse()
	if err != nil {
		return err
	}

	// K = P * H^T * S^-1
	k := kf.P.Multiply(hT).Multiply(sInv)

	kf.X = kf.X.Add(k.Multiply(y))
	kf.P = Identity(2).Subtract(k.Multiply(kf.H)).Multiply(kf.P)
	return nil
}

// Kalman runs one AxisFilter for roll and one for pitch.
// A measurement update only fails when the innovation covariance is zero, which needs a
// non-positive RMeasure. The prediction then stands and the update is counted as skipped.
type Kalman struct {
	roll, pitch *AxisFilter
	seeded      bool
	skipped     uint64
}

// NewKalman creates the roll and pitch filters from cfg.
func NewKalman(cfg config.Estimator) *Kalman {
	return &Kalman{
		roll:  NewAxisFilter(cfg.QAngle, cfg.QBias, cfg.RMeasure),
		pitch: NewAxisFilter(cfg.QAngle, cfg.QBias, cfg.RMeasure),
	}
}

func (k *Kalman) Seed(a Angles) {
	k.roll.SetAngle(a.Roll)
	k.pitch.SetAngle(a.Pitch)
	k.seeded = true
}

func (k *Kalman) Push(acceleration, angularVelocity imu.Vector3, dt float64) Angles {
	accel, ok := AccelAngles(acceleration)
	if !k.seeded && ok {
		k.Seed(accel)
		return k.angles()
	}

	k.roll.Predict(angularVelocity[0], dt)
	k.pitch.Predict(angularVelocity[1], dt)

	// without a usable accelerometer angle the prediction stands
	if ok {
		if err := k.roll.Update(accel.Roll); err != nil {
			k.skipped++
		}
		if err := k.pitch.Update(accel.Pitch); err != nil {
			k.skipped++
		}
	}
	return k.angles()
}

// Skipped returns the number of axis measurement updates rejected as singular.
func (k *Kalman) Skipped() uint64 {
	return k.skipped
}

// Bias returns the estimated gyro bias of the roll and pitch axes.
func (k *Kalman) Bias() Angles {
	return Angles{Roll: k.roll.Bias(), Pitch: k.pitch.Bias()}
}

func (k *Kalman) angles() Angles {
	return Angles{Roll: k.roll.Angle(), Pitch: k.pitch.Angle()}
}
