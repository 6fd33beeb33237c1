package search

import "github.com/sveturs/mapsearch/internal/model"

// ClusterZoomThreshold is the zoom below which buyer searches switch
// to aggregated clusters.
const ClusterZoomThreshold = 11.0

// SelectMode picks the backend operation for the current inputs.
// Without a buyer location everything is a keyword search. With one,
// low zoom aggregates into clusters and a district boundary combines
// radius search with district containment.
func SelectMode(zoom float64, hasBuyer, hasDistrict bool) model.SearchMode {
	if !hasBuyer {
		return model.ModeKeyword
	}
	if zoom < ClusterZoomThreshold {
		return model.ModeCluster
	}
	if hasDistrict {
		return model.ModeCombinedRadiusDistrict
	}
	return model.ModeRadius
}
