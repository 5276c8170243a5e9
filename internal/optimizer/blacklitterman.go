package optimizer

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/wonny/sectorfolio/internal/contracts"
)

// DefaultTau scales the prior covariance
const DefaultTau = 0.05

// blackLitterman blends an equal-weighted prior with one absolute view per asset.
//
//	π    = 1/n for every asset
//	P    = I
//	Ω    = diag(τΣ)
//	post = π + τΣ (τΣ + Ω)⁻¹ (Q − π)
func blackLitterman(cov *mat.SymDense, views []float64, tau float64) (prior, posterior []float64, err error) {
	n := cov.SymmetricDim()
	if len(views) != n {
		return nil, nil, fmt.Errorf("%w: %d views for %d assets", contracts.ErrEmptyInput, len(views), n)
	}

	prior = make([]float64, n)
	for i := range prior {
		prior[i] = 1 / float64(n)
	}

	tauSigma := mat.NewSymDense(n, nil)
	tauSigma.ScaleSym(tau, cov)

	// τΣ + Ω with Ω = diag(τΣ)
	a := mat.NewDense(n, n, nil)
	a.Copy(tauSigma)
	for i := 0; i < n; i++ {
		a.Set(i, i, 2*tauSigma.At(i, i))
	}

	diff := mat.NewVecDense(n, nil)
	diff.SubVec(mat.NewVecDense(n, append([]float64(nil), views...)), mat.NewVecDense(n, append([]float64(nil), prior...)))

	var x mat.VecDense
	if err := x.SolveVec(a, diff); err != nil {
		return nil, nil, fmt.Errorf("%w: black-litterman system is singular: %v", contracts.ErrOptimization, err)
	}

	var adj mat.VecDense
	adj.MulVec(tauSigma, &x)

	posterior = make([]float64, n)
	for i := range posterior {
		posterior[i] = prior[i] + adj.AtVec(i)
	}
	return prior, posterior, nil
}
