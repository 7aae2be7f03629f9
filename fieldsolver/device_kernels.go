package fieldsolver

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/FSKernel/arch"
	"github.com/notargets/FSKernel/runner"
)

const nameRowMin = "fsDtRowMin"

// resetMaxFsDt sets the CFL bound of every owned cell to REAL_MAX
const resetMaxFsDtKernel = `
@kernel void resetMaxFsDt(technical_t *technical) {
  for (int k = 0; k < LNZ; ++k; @outer) {
    for (int i = 0; i < LNX; ++i; @inner) {
      for (int j = 0; j < LNY; ++j) {
        technical[CELL(i, j, k)].maxFsDt = REAL_MAX;
      }
    }
  }
}
`

// rowMinFsDt reduces each (j,k) row of the CFL bound over the cells that take
// part in the subcycle dt: computed cells and the first boundary layer
const rowMinFsDtKernel = `
@kernel void rowMinFsDt(const technical_t *technical, real_t *fsDtRowMin) {
  for (int r = 0; r < LNY * LNZ; ++r; @outer) {
    for (int n = 0; n < 1; ++n; @inner) {
      const int j = r % LNY;
      const int k = r / LNY;
      real_t m = REAL_MAX;
      for (int i = 0; i < LNX; ++i) {
        const technical_t t = technical[CELL(i, j, k)];
        if (t.sysBoundaryFlag == 0 || t.sysBoundaryLayer == 1) {
          m = (t.maxFsDt < m) ? t.maxFsDt : m;
        }
      }
      fsDtRowMin[r] = m;
    }
  }
}
`

// deviceKernels are the device-native kernels of the driver. The host copy
// stays authoritative: each kernel declares the uploads and downloads that
// bracket its launch.
type deviceKernels struct {
	kr     *runner.Runner
	rowMin *arch.Buf[float64]
	rows   []float64
}

func newDeviceKernels(dev *arch.Device, g *Grids) (*deviceKernels, error) {
	kr := dev.Runner()
	ls := g.LocalSize()
	if kr.LocalSize != ls || kr.Halo != g.Technical.Grid().Stencil() {
		return nil, fmt.Errorf("runner layout %v halo %d does not match grid %v halo %d",
			kr.LocalSize, kr.Halo, ls, g.Technical.Grid().Stencil())
	}
	rows := make([]float64, ls[1]*ls[2])
	rowMin, err := arch.NewFlatBuf(dev, nameRowMin, rows)
	if err != nil {
		return nil, err
	}
	dk := &deviceKernels{kr: kr, rowMin: rowMin, rows: rows}
	if err = kr.DefineKernel("resetMaxFsDt", resetMaxFsDtKernel,
		kr.Param(NameTechnical).Copy()); err != nil {
		return nil, err
	}
	if err = kr.DefineKernel("rowMinFsDt", rowMinFsDtKernel,
		kr.Param(NameTechnical).CopyTo(), kr.Param(nameRowMin).CopyBack()); err != nil {
		return nil, err
	}
	return dk, nil
}

func (dk *deviceKernels) resetMaxFsDt() error {
	return dk.kr.RunKernel("resetMaxFsDt")
}

func (dk *deviceKernels) localMinMaxFsDt() (float64, error) {
	if err := dk.kr.RunKernel("rowMinFsDt"); err != nil {
		return 0, err
	}
	return floats.Min(dk.rows), nil
}

func (dk *deviceKernels) free() {
	dk.rowMin.Free()
}
