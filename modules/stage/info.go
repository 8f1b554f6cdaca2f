package stage

import (
	"github.com/e7canasta/orion-playout/modules/executor"
	"github.com/e7canasta/orion-playout/modules/producer"
)

// Info returns {"layers": [{"index": n, ...layer info}, ...]} in index order.
func (s *Stage) Info() *executor.Future[producer.Info] {
	return s.layersInfo((*layer).info)
}

// DelayInfo returns the per-layer frame age in the same shape as Info.
func (s *Stage) DelayInfo() *executor.Future[producer.Info] {
	return s.layersInfo((*layer).delayInfo)
}

// LayerInfo returns the info of one layer (empty state if unknown).
func (s *Stage) LayerInfo(index int) *executor.Future[producer.Info] {
	if index < 0 {
		return executor.Resolved[producer.Info](nil, ErrInvalidIndex)
	}
	return executor.Submit(s.exec, executor.High, func() (producer.Info, error) {
		l, ok := s.layers[index]
		if !ok {
			return producer.Info{"index": index, "status": StateEmpty.String()}, nil
		}
		info := l.info()
		info["index"] = index
		return info, nil
	})
}

func (s *Stage) layersInfo(fn func(*layer) producer.Info) *executor.Future[producer.Info] {
	return executor.Submit(s.exec, executor.High, func() (producer.Info, error) {
		layers := make([]producer.Info, 0, len(s.layers))
		for _, index := range s.sortedLayerIndices() {
			info := fn(s.layers[index])
			info["index"] = index
			layers = append(layers, info)
		}
		return producer.Info{"layers": layers}, nil
	})
}
