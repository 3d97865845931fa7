package geom

import "math"

// Vector2 is a point or direction in the flat sector plane.
type Vector2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Zero is the origin.
var Zero = Vector2{}

// Vec returns a vector from its components.
func Vec(x, y float64) Vector2 {
	return Vector2{X: x, Y: y}
}

// FromAngle returns the unit vector pointing along angle (radians, counter-clockwise from +X).
func FromAngle(angle float64) Vector2 {
	return Vector2{X: math.Cos(angle), Y: math.Sin(angle)}
}

func (v Vector2) Add(o Vector2) Vector2 {
	return Vector2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (v Vector2) Sub(o Vector2) Vector2 {
	return Vector2{X: v.X - o.X, Y: v.Y - o.Y}
}

func (v Vector2) Scale(f float64) Vector2 {
	return Vector2{X: v.X * f, Y: v.Y * f}
}

func (v Vector2) Dot(o Vector2) float64 {
	return v.X*o.X + v.Y*o.Y
}

func (v Vector2) Length() float64 {
	return math.Hypot(v.X, v.Y)
}

func (v Vector2) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Distance returns the euclidean distance between two points.
func (v Vector2) Distance(o Vector2) float64 {
	return v.Sub(o).Length()
}

// Normalize returns the unit vector in the direction of v, or the zero vector.
func (v Vector2) Normalize() Vector2 {
	length := v.Length()
	if length == 0 {
		return Zero
	}
	return v.Scale(1 / length)
}

// Rotate turns v counter-clockwise by angle radians.
func (v Vector2) Rotate(angle float64) Vector2 {
	sin, cos := math.Sincos(angle)
	return Vector2{X: v.X*cos - v.Y*sin, Y: v.X*sin + v.Y*cos}
}

// Angle returns the direction of v in radians within (-Pi, Pi].
func (v Vector2) Angle() float64 {
	return math.Atan2(v.Y, v.X)
}

// SegmentDistance returns the shortest distance from p to the segment a-b.
func SegmentDistance(p, a, b Vector2) float64 {
	ab := b.Sub(a)
	lengthSquared := ab.LengthSquared()
	if lengthSquared == 0 {
		return p.Distance(a)
	}
	t := Clamp(p.Sub(a).Dot(ab)/lengthSquared, 0, 1)
	return p.Distance(a.Add(ab.Scale(t)))
}
