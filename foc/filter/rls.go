// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package filter

// MaxOrder bounds an RLS filter's tap count, mirroring rls.h's MAX_ORDER.
const MaxOrder = 8

// RLSConfig parametrizes a recursive-least-squares adaptive filter.
type RLSConfig struct {
	Order  uint32
	Lambda float64 // forgetting factor
	Delta  float64
}

// RLS is a recursive-least-squares adaptive FIR filter, mirroring
// rls_filter_t/rls_exec.
//
// The zero value is usable and matches the original's behavior exactly,
// bugs included: rls_exec never clears denom/px/xtp at the top of the
// step, so they accumulate across calls instead of being recomputed fresh
// each time (YHat, below, accumulates the same way; err and temp are
// reassigned every step), and P starts as the zero matrix rather than
// delta*I — rls_init stores Delta in cfg but nothing in the original ever
// reads it back to seed P, so the first Exec call divides px[i]/denom
// with both sides zero. This is carried forward for fidelity rather than
// silently fixed; call Reset before first use (or whenever the
// accumulated state should be discarded) to clear px, denom, xtp and
// temp the way a from-scratch rls_filter_t would start.
type RLS struct {
	cfg RLSConfig

	err, denom float64
	w, x       [MaxOrder]float64
	p          [MaxOrder][MaxOrder]float64
	px, k, xtp [MaxOrder]float64
	temp       [MaxOrder][MaxOrder]float64

	// YHat is the filter's latest prediction, mirroring rls_out_t.y_hat.
	// Like denom above, it is never reset to zero inside Exec, so it
	// accumulates across calls rather than being recomputed fresh.
	YHat float64
}

// NewRLS constructs an RLS filter from cfg, mirroring rls_init.
func NewRLS(cfg RLSConfig) *RLS {
	return &RLS{cfg: cfg}
}

// Reset clears the accumulating temporaries the original's rls_exec
// leaves uncleared (px, denom, xtp, temp), without touching the learned
// weights w, the tap history x, or the covariance matrix p.
func (r *RLS) Reset() {
	r.denom = 0
	for i := range r.px {
		r.px[i] = 0
		r.xtp[i] = 0
	}
	for i := range r.temp {
		for j := range r.temp[i] {
			r.temp[i][j] = 0
		}
	}
}

// Exec runs one adaptation step given the new input sample x and
// reference ref, mirroring rls_exec, and returns the updated prediction.
func (r *RLS) Exec(x, ref float64) float64 {
	n := int(r.cfg.Order)
	if n > MaxOrder {
		n = MaxOrder
	}

	for i := n - 1; i > 0; i-- {
		r.x[i] = r.x[i-1]
	}
	r.x[0] = x

	for i := 0; i < n; i++ {
		r.YHat += r.w[i] * r.x[i]
	}
	r.err = ref - r.YHat

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r.px[i] += r.p[i][j] * r.x[j]
		}
	}

	for i := 0; i < n; i++ {
		r.denom += r.x[i] * r.px[i]
	}

	for i := 0; i < n; i++ {
		r.k[i] = r.px[i] / r.denom
	}

	for i := 0; i < n; i++ {
		r.w[i] += r.k[i] * r.err
	}

	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			r.xtp[j] += r.x[i] * r.p[i][j]
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r.temp[i][j] = r.k[i] * r.xtp[j]
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			r.p[i][j] = (r.p[i][j] - r.temp[i][j]) / r.cfg.Lambda
		}
	}

	return r.YHat
}
