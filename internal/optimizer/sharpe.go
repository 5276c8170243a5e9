package optimizer

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/wonny/sectorfolio/internal/contracts"
)

const (
	maxIterations  = 2000
	minStep        = 1e-14
	sharpeTol      = 1e-12
	bisectionSteps = 200
)

// sharpeProblem maximizes (μᵀw − rf) / sqrt(wᵀΣw) over {Σw = 1, 0 ≤ w ≤ cap}
type sharpeProblem struct {
	mu  []float64
	cov *mat.SymDense
	rf  float64
	cap float64
}

func (p *sharpeProblem) n() int { return len(p.mu) }

func (p *sharpeProblem) variance(w []float64) float64 {
	v := mat.NewVecDense(p.n(), w)
	return mat.Inner(v, p.cov, v)
}

func (p *sharpeProblem) sharpe(w []float64) float64 {
	variance := p.variance(w)
	if variance <= 0 {
		return math.Inf(-1)
	}
	return (floats.Dot(p.mu, w) - p.rf) / math.Sqrt(variance)
}

// gradient of the Sharpe ratio: μ/σ − (μᵀw − rf) Σw / σ³
func (p *sharpeProblem) gradient(w []float64) []float64 {
	n := p.n()
	sigmaW := mat.NewVecDense(n, nil)
	sigmaW.MulVec(p.cov, mat.NewVecDense(n, w))

	sigma := math.Sqrt(mat.Dot(mat.NewVecDense(n, w), sigmaW))
	excess := floats.Dot(p.mu, w) - p.rf

	g := make([]float64, n)
	for i := range g {
		g[i] = p.mu[i]/sigma - excess*sigmaW.AtVec(i)/(sigma*sigma*sigma)
	}
	return g
}

// project maps v onto the capped simplex by bisection on τ: Σ clip(v − τ, 0, cap) = 1
func (p *sharpeProblem) project(v []float64) []float64 {
	lo := floats.Min(v) - p.cap
	hi := floats.Max(v)

	clipped := func(tau float64) ([]float64, float64) {
		out := make([]float64, len(v))
		sum := 0.0
		for i, x := range v {
			out[i] = math.Min(math.Max(x-tau, 0), p.cap)
			sum += out[i]
		}
		return out, sum
	}

	for i := 0; i < bisectionSteps; i++ {
		mid := (lo + hi) / 2
		if _, sum := clipped(mid); sum > 1 {
			lo = mid
		} else {
			hi = mid
		}
	}
	w, _ := clipped((lo + hi) / 2)
	return w
}

// maxSharpe solves the capped max-Sharpe problem. Projected gradient ascent starts from
// equal weights; a Nelder-Mead run over the projected space supplies a second candidate.
// The better of the two is returned.
func maxSharpe(ctx context.Context, mu []float64, cov *mat.SymDense, rf, weightCap float64) ([]float64, error) {
	n := len(mu)
	if n == 0 {
		return nil, fmt.Errorf("%w: no assets", contracts.ErrEmptyInput)
	}
	if float64(n)*weightCap < 1-1e-9 {
		return nil, fmt.Errorf("%w: infeasible bounds, %d assets × cap %g < 1", contracts.ErrOptimization, n, weightCap)
	}
	if floats.Max(mu) <= rf {
		return nil, fmt.Errorf("%w: no asset has an expected return above the risk-free rate %g", contracts.ErrOptimization, rf)
	}

	p := &sharpeProblem{mu: mu, cov: cov, rf: rf, cap: weightCap}

	start := make([]float64, n)
	for i := range start {
		start[i] = 1 / float64(n)
	}

	best, err := p.ascend(ctx, p.project(start))
	if err != nil {
		return nil, err
	}

	if candidate, ok := p.nelderMead(start); ok && p.sharpe(candidate) > p.sharpe(best) {
		if refined, err := p.ascend(ctx, candidate); err == nil && p.sharpe(refined) >= p.sharpe(candidate) {
			candidate = refined
		}
		best = candidate
	}

	if p.variance(best) <= 0 || math.IsInf(p.sharpe(best), -1) {
		return nil, fmt.Errorf("%w: zero portfolio volatility", contracts.ErrOptimization)
	}
	return best, nil
}

// ascend runs projected gradient ascent with backtracking from a feasible point
func (p *sharpeProblem) ascend(ctx context.Context, w []float64) ([]float64, error) {
	current := p.sharpe(w)
	step := 1.0

	for iter := 0; iter < maxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if math.IsInf(current, -1) {
			return w, nil
		}

		g := p.gradient(w)
		improved := false

		for step > minStep {
			next := make([]float64, len(w))
			floats.AddScaledTo(next, w, step, g)
			next = p.project(next)

			if value := p.sharpe(next); value > current+sharpeTol {
				w, current = next, value
				improved = true
				step *= 2
				break
			}
			step /= 2
		}

		if !improved {
			break
		}
	}
	return w, nil
}

func (p *sharpeProblem) nelderMead(start []float64) ([]float64, bool) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			s := p.sharpe(p.project(x))
			if math.IsInf(s, -1) || math.IsNaN(s) {
				return math.MaxFloat64
			}
			return -s
		},
	}

	result, err := optimize.Minimize(problem, start, &optimize.Settings{
		MajorIterations: maxIterations,
	}, &optimize.NelderMead{})
	if err != nil || result == nil {
		return nil, false
	}
	return p.project(result.X), true
}
