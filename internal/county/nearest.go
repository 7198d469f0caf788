package county

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

const earthRadiusKm = 6371.0

// centroid is a county centroid embedded on the unit sphere. Squared chord
// length orders points the same way as great-circle distance, so the tree
// search is exact at any latitude and across the antimeridian.
type centroid struct {
	xyz [3]float64
	ref Ref
}

func newCentroid(lat, lon float64) centroid {
	phi, lambda := lat*math.Pi/180, lon*math.Pi/180
	return centroid{xyz: [3]float64{
		math.Cos(phi) * math.Cos(lambda),
		math.Cos(phi) * math.Sin(lambda),
		math.Sin(phi),
	}}
}

func (c centroid) Compare(o kdtree.Comparable, d kdtree.Dim) float64 {
	return c.xyz[d] - o.(centroid).xyz[d]
}

func (c centroid) Dims() int { return 3 }

func (c centroid) Distance(o kdtree.Comparable) float64 {
	q := o.(centroid)
	var sum float64
	for i := range c.xyz {
		d := c.xyz[i] - q.xyz[i]
		sum += d * d
	}
	return sum
}

type centroids []centroid

func (p centroids) Index(i int) kdtree.Comparable         { return p[i] }
func (p centroids) Len() int                              { return len(p) }
func (p centroids) Pivot(d kdtree.Dim) int                { return axisPlane{Dim: d, centroids: p}.Pivot() }
func (p centroids) Slice(start, end int) kdtree.Interface { return p[start:end] }

// axisPlane orders centroids along one axis for median partitioning.
type axisPlane struct {
	kdtree.Dim
	centroids
}

func (p axisPlane) Less(i, j int) bool {
	return p.centroids[i].xyz[p.Dim] < p.centroids[j].xyz[p.Dim]
}
func (p axisPlane) Pivot() int { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p axisPlane) Slice(start, end int) kdtree.SortSlicer {
	p.centroids = p.centroids[start:end]
	return p
}
func (p axisPlane) Swap(i, j int) {
	p.centroids[i], p.centroids[j] = p.centroids[j], p.centroids[i]
}

func buildIndex(refs []Ref) *kdtree.Tree {
	if len(refs) == 0 {
		return nil
	}
	pts := make(centroids, len(refs))
	for i, r := range refs {
		pts[i] = newCentroid(r.Latitude, r.Longitude)
		pts[i].ref = r
	}
	return kdtree.New(pts, false)
}

// Nearest returns the county whose centroid is closest to (lat, lon) and the
// great-circle distance to it in kilometres. ok is false for an empty table.
func (t *Table) Nearest(lat, lon float64) (ref Ref, distKm float64, ok bool) {
	if t == nil || t.index == nil {
		return Ref{}, 0, false
	}
	got, _ := t.index.Nearest(newCentroid(lat, lon))
	if got == nil {
		return Ref{}, 0, false
	}
	ref = got.(centroid).ref
	return ref, haversine(lat, lon, ref.Latitude, ref.Longitude), true
}

// haversine returns the great-circle distance in kilometres.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
