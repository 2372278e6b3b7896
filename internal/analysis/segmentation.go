package analysis

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/willfong/card-spend/internal/models"
	"github.com/willfong/card-spend/internal/utils"
)

// profileSize is how many member segments a cluster profile lists.
const profileSize = 3

// CustomerSegment is one age group × gender × card type combination.
type CustomerSegment struct {
	AgeGroup         string  `yaml:"age_group"`
	Gender           string  `yaml:"gender"`
	CardType         string  `yaml:"card_type"`
	MeanSpend        float64 `yaml:"mean_spend_thousands_inr"`
	TotalSpend       float64 `yaml:"total_spend_thousands_inr"`
	MeanTransactions float64 `yaml:"mean_transactions"`
	MeanTicket       float64 `yaml:"mean_ticket_inr"`
	Cluster          int     `yaml:"cluster"`
}

// Label joins the segment's attributes.
func (s CustomerSegment) Label() string {
	return strings.Join([]string{s.AgeGroup, s.Gender, s.CardType}, " / ")
}

func (s CustomerSegment) features() []float64 {
	return []float64{s.MeanSpend, s.TotalSpend, s.MeanTransactions, s.MeanTicket}
}

// Cluster profiles one k-means cluster in the original units.
type Cluster struct {
	ID               int      `yaml:"id"`
	Size             int      `yaml:"size"`
	MeanSpend        float64  `yaml:"mean_spend_thousands_inr"`
	TotalSpend       float64  `yaml:"total_spend_thousands_inr"`
	MeanTransactions float64  `yaml:"mean_transactions"`
	MeanTicket       float64  `yaml:"mean_ticket_inr"`
	Share            float64  `yaml:"share_pct"`
	Top              []string `yaml:"top_segments"`
}

// Segmentation is the clustering of customer segments.
type Segmentation struct {
	K          int               `yaml:"k"`
	Inertia    float64           `yaml:"inertia"`
	Iterations int               `yaml:"iterations"`
	Clusters   []Cluster         `yaml:"clusters"`
	Segments   []CustomerSegment `yaml:"segments"`
}

// Segment groups detailed rows by age group, gender and card type and
// clusters the groups on standardized spending features. Clusters are
// numbered from 1 in descending order of mean spend. k is capped at the
// number of groups.
func Segment(detailed []models.DetailedRecord, k int, seed int64, order *ordering) (*Segmentation, error) {
	segments := customerSegments(detailed, order)
	if len(segments) < 2 {
		return nil, fmt.Errorf("%w: segmentation needs at least 2 customer segments, have %d", ErrInsufficientData, len(segments))
	}
	if k < 2 {
		return nil, fmt.Errorf("segmentation needs at least 2 clusters, got %d", k)
	}
	k = min(k, len(segments))

	points := make([][]float64, len(segments))
	for i, s := range segments {
		points[i] = s.features()
	}
	standardize(points)

	res := kmeans(points, k, utils.NewRandom(seed))

	members := make([][]int, k)
	for i, c := range res.labels {
		members[c] = append(members[c], i)
	}

	total := 0.0
	for _, s := range segments {
		total += s.TotalSpend
	}

	var clusters []Cluster
	ids := make([]int, k)
	for c, idx := range members {
		if len(idx) == 0 {
			continue
		}
		cl := Cluster{Size: len(idx)}
		for _, i := range idx {
			s := segments[i]
			cl.MeanSpend += s.MeanSpend
			cl.TotalSpend += s.TotalSpend
			cl.MeanTransactions += s.MeanTransactions
			cl.MeanTicket += s.MeanTicket
		}
		n := float64(len(idx))
		cl.MeanSpend /= n
		cl.MeanTransactions /= n
		cl.MeanTicket /= n
		if total > 0 {
			cl.Share = cl.TotalSpend / total * 100
		}

		ranked := append([]int(nil), idx...)
		sort.SliceStable(ranked, func(a, b int) bool {
			return segments[ranked[a]].TotalSpend > segments[ranked[b]].TotalSpend
		})
		for _, i := range ranked[:min(profileSize, len(ranked))] {
			cl.Top = append(cl.Top, segments[i].Label())
		}

		// ID temporarily holds the k-means label
		cl.ID = c
		clusters = append(clusters, cl)
	}

	sort.SliceStable(clusters, func(a, b int) bool { return clusters[a].MeanSpend > clusters[b].MeanSpend })
	for i := range clusters {
		ids[clusters[i].ID] = i + 1
		clusters[i].ID = i + 1
	}
	for i, c := range res.labels {
		segments[i].Cluster = ids[c]
	}

	return &Segmentation{
		K:          k,
		Inertia:    res.inertia,
		Iterations: res.iterations,
		Clusters:   clusters,
		Segments:   segments,
	}, nil
}

func customerSegments(detailed []models.DetailedRecord, order *ordering) []CustomerSegment {
	type acc struct {
		seg          CustomerSegment
		n            int
		transactions float64
		ticket       float64
	}
	groups := make(map[string]*acc)
	for _, r := range detailed {
		key := r.AgeGroup + "\x00" + r.Gender + "\x00" + r.CardType
		a, ok := groups[key]
		if !ok {
			a = &acc{seg: CustomerSegment{AgeGroup: r.AgeGroup, Gender: r.Gender, CardType: r.CardType}}
			groups[key] = a
		}
		a.n++
		a.seg.TotalSpend += r.SpendingAmountThousandsINR
		a.transactions += float64(r.TransactionCount)
		a.ticket += r.AvgTransactionAmountINR
	}

	out := make([]CustomerSegment, 0, len(groups))
	for _, a := range groups {
		n := float64(a.n)
		a.seg.MeanSpend = a.seg.TotalSpend / n
		a.seg.MeanTransactions = a.transactions / n
		a.seg.MeanTicket = a.ticket / n
		out = append(out, a.seg)
	}

	rank := func(dimension, name string) int {
		if r, ok := order.rank[dimension][name]; ok {
			return r
		}
		return len(order.rank[dimension])
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		for _, cmp := range [][2]int{
			{rank("age_group", a.AgeGroup), rank("age_group", b.AgeGroup)},
			{rank("gender", a.Gender), rank("gender", b.Gender)},
			{rank("card_type", a.CardType), rank("card_type", b.CardType)},
		} {
			if cmp[0] != cmp[1] {
				return cmp[0] < cmp[1]
			}
		}
		return a.Label() < b.Label()
	})
	return out
}

// standardize rescales each column to zero mean and unit population
// standard deviation. Constant columns become zero.
func standardize(points [][]float64) {
	if len(points) == 0 {
		return
	}
	col := make([]float64, len(points))
	for j := range points[0] {
		for i, p := range points {
			col[i] = p[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		for _, p := range points {
			if std == 0 {
				p[j] = 0
			} else {
				p[j] = (p[j] - mean) / std
			}
		}
	}
}
