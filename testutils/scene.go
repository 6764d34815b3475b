package testutils

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"

	"go.viam.com/colormap/mesh"
	"go.viam.com/colormap/rimage"
	"go.viam.com/colormap/rimage/transform"
	"go.viam.com/colormap/spatialmath"
	"go.viam.com/colormap/utils"
)

// SceneConfig describes a synthetic RGB-D capture of a textured sphere.
type SceneConfig struct {
	Width, Height int
	NumFrames     int
	// Camera distance from the sphere center in meters.
	Distance float64
	// Latitude rings and longitude segments of the sphere mesh.
	Rings, Segments int
	// Scale of the pose error applied to the cameras handed to the optimizer. Zero gives exact poses.
	Perturbation float64
}

// DefaultSceneConfig is a small scene that keeps tests fast.
func DefaultSceneConfig() SceneConfig {
	return SceneConfig{
		Width:        160,
		Height:       120,
		NumFrames:    5,
		Distance:     2.5,
		Rings:        24,
		Segments:     48,
		Perturbation: 1,
	}
}

// Scene is a rendered synthetic capture. Colors, Depths and Cameras are indexed by frame; Cameras
// carry the perturbed poses while TruePoses are the ones the images were rendered from.
type Scene struct {
	Center r3.Vector
	Radius float64

	Mesh      *mesh.TriangleMesh
	Colors    []*rimage.Image
	Depths    []*rimage.DepthMap
	Cameras   []*transform.PinholeCameraParameters
	TruePoses []spatialmath.Pose
}

// SphereTexture is the ground truth color of the sphere surface at a world point.
func SphereTexture(center, p r3.Vector) colorful.Color {
	d := p.Sub(center)
	return colorful.Color{
		R: 0.5 + 0.3*math.Sin(3*d.X+1),
		G: 0.5 + 0.3*math.Sin(4*d.Y),
		B: 0.5 + 0.3*math.Cos(2*d.Z+3*d.X),
	}
}

// NewSphereScene renders a unit sphere centered 3 meters in front of the world origin from
// cfg.NumFrames cameras spread over a 50 degree arc in front of it.
func NewSphereScene(cfg SceneConfig) *Scene {
	scene := &Scene{
		Center: r3.Vector{Z: 3},
		Radius: 1,
	}
	scene.Mesh = sphereMesh(scene.Center, scene.Radius, cfg.Rings, cfg.Segments)

	intrinsics := &transform.PinholeCameraIntrinsics{
		Width:  cfg.Width,
		Height: cfg.Height,
		Fx:     float64(cfg.Width) * 15 / 16,
		Fy:     float64(cfg.Width) * 15 / 16,
		Ppx:    float64(cfg.Width) / 2,
		Ppy:    float64(cfg.Height) / 2,
	}
	for k := 0; k < cfg.NumFrames; k++ {
		yaw, pitch := 0.0, 0.0
		if cfg.NumFrames > 1 {
			yaw = utils.DegToRad(-25 + 50*float64(k)/float64(cfg.NumFrames-1))
		}
		if k%2 == 1 {
			pitch = utils.DegToRad(8)
		}
		eye := scene.Center.Add(r3.Vector{
			X: math.Sin(yaw) * math.Cos(pitch),
			Y: math.Sin(pitch),
			Z: -math.Cos(yaw) * math.Cos(pitch),
		}.Mul(cfg.Distance))
		truePose := lookAt(eye, scene.Center)
		img, dm := scene.render(intrinsics, truePose)

		// small deterministic pose error that differs per frame
		s := cfg.Perturbation
		kf := float64(k + 1)
		noise := spatialmath.NewPoseFromTwist(
			r3.Vector{X: 0.005 * s * math.Sin(kf), Y: 0.005 * s * math.Cos(kf), Z: 0.003 * s * math.Sin(2*kf)},
			r3.Vector{X: 0.01 * s * math.Cos(3*kf), Y: 0.01 * s * math.Sin(kf), Z: 0.005 * s * math.Cos(kf)},
		)
		cam := &transform.PinholeCameraParameters{
			Intrinsics: intrinsics.Scaled(1),
			Extrinsics: spatialmath.Compose(noise, truePose),
		}
		scene.Colors = append(scene.Colors, img)
		scene.Depths = append(scene.Depths, dm)
		scene.Cameras = append(scene.Cameras, cam)
		scene.TruePoses = append(scene.TruePoses, truePose)
	}
	return scene
}

// TrueColors returns the texture color of every mesh vertex.
func (s *Scene) TrueColors() []colorful.Color {
	out := make([]colorful.Color, len(s.Mesh.Vertices))
	for i, v := range s.Mesh.Vertices {
		out[i] = SphereTexture(s.Center, v)
	}
	return out
}

// lookAt returns the world to camera pose of a camera at eye looking at target, with the camera y
// axis pointing as close to world +y as possible.
func lookAt(eye, target r3.Vector) spatialmath.Pose {
	z := target.Sub(eye).Normalize()
	x := r3.Vector{Y: 1}.Cross(z).Normalize()
	y := z.Cross(x)
	rm := spatialmath.RotationMatrix{
		x.X, x.Y, x.Z,
		y.X, y.Y, y.Z,
		z.X, z.Y, z.Z,
	}
	pose, err := spatialmath.NewPoseFromRotationMatrix(rm.Mul(eye).Mul(-1), rm)
	if err != nil {
		panic(err)
	}
	return pose
}

// render ray casts the sphere. Pixels that miss it have no depth and a black color.
func (s *Scene) render(intrinsics *transform.PinholeCameraIntrinsics, pose spatialmath.Pose) (*rimage.Image, *rimage.DepthMap) {
	img := rimage.NewImage(intrinsics.Width, intrinsics.Height)
	dm := rimage.NewEmptyDepthMap(intrinsics.Width, intrinsics.Height)
	camToWorld := pose.Invert()
	eye := camToWorld.Point()
	rot := camToWorld.Rotation()
	for v := 0; v < intrinsics.Height; v++ {
		for u := 0; u < intrinsics.Width; u++ {
			x, y, z := intrinsics.PixelToPoint(float64(u), float64(v), 1)
			dir := rot.Mul(r3.Vector{X: x, Y: y, Z: z})
			// |eye + t*dir - center|^2 = r^2, with camera depth equal to t
			oc := eye.Sub(s.Center)
			a := dir.Dot(dir)
			b := 2 * oc.Dot(dir)
			c := oc.Dot(oc) - s.Radius*s.Radius
			disc := b*b - 4*a*c
			if disc < 0 {
				continue
			}
			t := (-b - math.Sqrt(disc)) / (2 * a)
			if t <= 0 {
				continue
			}
			dm.Set(u, v, rimage.DepthFromMeters(t))
			img.SetXY(u, v, SphereTexture(s.Center, eye.Add(dir.Mul(t))))
		}
	}
	return img, dm
}

// sphereMesh builds a latitude/longitude sphere with outward normals and black colors.
func sphereMesh(center r3.Vector, radius float64, rings, segments int) *mesh.TriangleMesh {
	m := &mesh.TriangleMesh{}
	add := func(n r3.Vector) {
		m.Vertices = append(m.Vertices, center.Add(n.Mul(radius)))
		m.Normals = append(m.Normals, n)
	}
	add(r3.Vector{Y: -1})
	for i := 1; i < rings; i++ {
		lat := math.Pi*float64(i)/float64(rings) - math.Pi/2
		for j := 0; j < segments; j++ {
			lon := 2 * math.Pi * float64(j) / float64(segments)
			add(r3.Vector{
				X: math.Cos(lat) * math.Sin(lon),
				Y: math.Sin(lat),
				Z: -math.Cos(lat) * math.Cos(lon),
			})
		}
	}
	add(r3.Vector{Y: 1})

	bottom := len(m.Vertices) - 1
	ring := func(i, j int) int {
		return 1 + (i-1)*segments + (j % segments)
	}
	for j := 0; j < segments; j++ {
		m.Triangles = append(m.Triangles, [3]int{0, ring(1, j+1), ring(1, j)})
		for i := 1; i < rings-1; i++ {
			m.Triangles = append(m.Triangles,
				[3]int{ring(i, j), ring(i, j+1), ring(i+1, j)},
				[3]int{ring(i, j+1), ring(i+1, j+1), ring(i+1, j)},
			)
		}
		m.Triangles = append(m.Triangles, [3]int{bottom, ring(rings-1, j), ring(rings-1, j+1)})
	}
	m.EnsureColors()
	return m
}
