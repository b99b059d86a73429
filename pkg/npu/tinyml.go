package npu

// DenseLayer describes one fully connected layer with per-layer
// post-accumulation quantization. Weights are flattened row-major,
// one row of InFeatures int8 weights per output neuron.
type DenseLayer struct {
	Weights []int8
	Bias    []int32

	InFeatures int
	OutNeurons int

	OutputShift uint8
	OutputMult  int32
	ReLU        bool
}

func clampI8(x int32) int8 {
	if x > 127 {
		return 127
	}
	if x < -128 {
		return -128
	}
	return int8(x)
}

func (l *DenseLayer) tile(outGrp, inGrp int) Mat4 {
	var w Mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			o, i := outGrp+col, inGrp+row
			if o < l.OutNeurons && i < l.InFeatures {
				w[row][col] = l.Weights[o*l.InFeatures+i]
			}
		}
	}
	return w
}

// RunLayer evaluates one dense layer of arbitrary size by tiling it
// over the 4×4 array. The accelerator runs in raw mode (multiplier 1,
// no shift, no bias) while partial tile products accumulate on the
// host; bias, scaling, activation and the int8 clamp apply once per
// output group.
func RunLayer(d *Driver, l *DenseLayer, input []int8) ([]int8, error) {
	d.Configure(0, 1, [4]int32{}, false)

	output := make([]int8, l.OutNeurons)
	for outGrp := 0; outGrp < l.OutNeurons; outGrp += 4 {
		var acc [4]int32
		for k := 0; k < 4; k++ {
			if outGrp+k < l.OutNeurons {
				acc[k] = l.Bias[outGrp+k]
			}
		}

		for inGrp := 0; inGrp < l.InFeatures; inGrp += 4 {
			d.LoadWeights(l.tile(outGrp, inGrp))

			var in Vec4
			for k := 0; k < 4; k++ {
				if inGrp+k < l.InFeatures {
					in[k] = input[inGrp+k]
				}
			}

			res, err := d.Execute(in)
			if err != nil {
				return nil, err
			}
			for k := 0; k < 4; k++ {
				acc[k] += int32(res[k])
			}
		}

		for k := 0; k < 4; k++ {
			if outGrp+k >= l.OutNeurons {
				break
			}
			v := (acc[k] * l.OutputMult) >> l.OutputShift
			if l.ReLU && v < 0 {
				v = 0
			}
			output[outGrp+k] = clampI8(v)
		}
	}
	return output, nil
}
