package galaxy

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"galactic-server/internal/catalog"
	"galactic-server/internal/random"
	apperrors "galactic-server/internal/shared/errors"
	"galactic-server/internal/shared/telemetry"
	"galactic-server/internal/system"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Galaxy is a generated set of linked systems.
type Galaxy struct {
	Systems  []*system.System
	Clusters []*Cluster
}

type Service struct {
	reg    *catalog.Registry
	logger *slog.Logger
}

func NewService(reg *catalog.Registry, logger *slog.Logger) *Service {
	logger.Debug("Initializing galaxy service")

	return &Service{
		reg:    reg,
		logger: logger,
	}
}

// Generate builds a galaxy for gameID. Clusters are cut in parallel, each
// from its own random stream derived from opts.Seed, so the result only
// depends on the seed.
func (s *Service) Generate(ctx context.Context, gameID string, opts Options) (*Galaxy, error) {
	logger := s.logger.With("component", "galaxy_service", "operation", "generate", "game_id", gameID)

	ctx, span := telemetry.Tracer().Start(ctx, "galaxy.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("game.id", gameID),
		attribute.Int("galaxy.size", opts.Size),
		attribute.Int("galaxy.cluster_size", opts.ClusterSize),
	)

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	sizes := clusterSizes(opts.Size, opts.ClusterSize)
	clusters := make([]*Cluster, len(sizes))

	g, gctx := errgroup.WithContext(ctx)
	for i, n := range sizes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src := random.Derive(opts.Seed, uint64(i+1))
			c, err := NewCluster(random.Choice(src, templatesFor(n)), n, opts.CyclePercentage, src)
			if err != nil {
				return fmt.Errorf("cluster %d: %w", i, err)
			}
			clusters[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cluster generation failed")
		if errors.Is(err, ErrTemplate) {
			logger.Error("Failed to generate cluster", "error", err)
			return nil, apperrors.WrapInternal("failed to generate galaxy", err)
		}
		return nil, err
	}

	src := random.Derive(opts.Seed, 0)
	galaxy := &Galaxy{Clusters: clusters}
	members := s.populate(galaxy, gameID, place(clusters, opts), opts.Spacing, src)
	inter := connect(members)

	logger.Info("Galaxy generated",
		"systems", len(galaxy.Systems),
		"clusters", len(clusters),
		"cluster_links", inter)
	span.SetAttributes(attribute.Int("galaxy.systems", len(galaxy.Systems)))
	return galaxy, nil
}

func clusterSizes(size, clusterSize int) []int {
	var out []int
	for size > 0 {
		n := min(size, clusterSize)
		out = append(out, n)
		size -= n
	}
	return out
}

type circle struct {
	centre Point
	radius float64
}

// place spreads clusters around the origin on a growing spiral, rejecting
// spots whose bounding circle overlaps an already placed cluster. It
// returns each cluster's offset applied to its scaled template coordinates.
func place(clusters []*Cluster, opts Options) []Point {
	offsets := make([]Point, len(clusters))
	placed := make([]circle, 0, len(clusters))

	for i, c := range clusters {
		local := c.Positions()
		var centroid Point
		for _, p := range local {
			centroid = centroid.Add(p.Scale(opts.Spacing))
		}
		centroid = centroid.Scale(1 / float64(len(local)))
		radius := 0.0
		for _, p := range local {
			radius = max(radius, Distance(p.Scale(opts.Spacing), centroid))
		}

		var centre Point
		for step := 0; ; step++ {
			angle := float64(step) * 0.5
			r := float64(step) * opts.Spacing * 0.25
			centre = Point{math.Cos(angle) * r, math.Sin(angle) * r}
			if !collides(placed, circle{centre, radius}, opts) {
				break
			}
		}
		placed = append(placed, circle{centre, radius})
		offsets[i] = centre.Sub(centroid)
	}
	return offsets
}

func collides(placed []circle, c circle, opts Options) bool {
	for _, p := range placed {
		if Distance(p.centre, c.centre) < (p.radius+c.radius+opts.Spacing)*opts.CollisionPrecision {
			return true
		}
	}
	return false
}

// populate turns cluster vertices into systems and links each cluster's
// edges. It returns the systems of every cluster in vertex order.
func (s *Service) populate(g *Galaxy, gameID string, offsets []Point, spacing float64, src random.Source) [][]*system.System {
	baseline := s.reg.Baseline()
	types := s.reg.SystemTypes()
	weight := func(t *catalog.SystemType) float64 {
		return baseline[catalog.SystemTypeKey(t.ID, catalog.FieldChance)]
	}

	names := slices.Clone(systemNames)
	random.Shuffle(src, names)
	next := 0
	name := func() string {
		n := names[next%len(names)]
		if round := next / len(names); round > 0 {
			n = fmt.Sprintf("%s %d", n, round+1)
		}
		next++
		return n
	}

	members := make([][]*system.System, len(g.Clusters))
	for ci, c := range g.Clusters {
		byVertex := make(map[int]*system.System, len(c.Vertices))
		for _, v := range c.Vertices {
			st, ok := random.Weighted(src, types, weight)
			if !ok {
				st = types[0]
			}
			capacity := st.Capacity[0]
			if spread := st.Capacity[1] - st.Capacity[0]; spread > 0 {
				capacity += src.IntN(spread + 1)
			}

			sys := system.New(uuid.NewString(), gameID, name(), st.ID, capacity)
			pos := c.Template.Vertices[v].Scale(spacing).Add(offsets[ci])
			sys.X, sys.Y = pos.X, pos.Y
			sys.Cluster = ci

			byVertex[v] = sys
			members[ci] = append(members[ci], sys)
			g.Systems = append(g.Systems, sys)
		}
		for _, e := range c.Edges {
			a, b := byVertex[e.A], byVertex[e.B]
			system.Link(a, b, linkDistance(a, b))
		}
	}
	return members
}

// connect links clusters Kruskal-style over the closest system pair of every
// cluster pair, skipping pairs already connected. It returns the number of
// links added.
func connect(members [][]*system.System) int {
	type candidate struct {
		from, to int
		a, b     *system.System
		distance float64
	}

	var candidates []candidate
	for i := range members {
		for j := i + 1; j < len(members); j++ {
			best := candidate{from: i, to: j, distance: math.Inf(1)}
			for _, a := range members[i] {
				for _, b := range members[j] {
					if d := Distance(Point{a.X, a.Y}, Point{b.X, b.Y}); d < best.distance {
						best.a, best.b, best.distance = a, b, d
					}
				}
			}
			candidates = append(candidates, best)
		}
	}
	slices.SortStableFunc(candidates, func(x, y candidate) int { return cmp.Compare(x.distance, y.distance) })

	forest := NewForest(len(members))
	added := 0
	for _, c := range candidates {
		if forest.ClosesCycle(c.from, c.to) {
			continue
		}
		forest.Join(c.from, c.to)
		system.Link(c.a, c.b, linkDistance(c.a, c.b))
		added++
	}
	return added
}

func linkDistance(a, b *system.System) float64 {
	return math.Round(Distance(Point{a.X, a.Y}, Point{b.X, b.Y}))
}
