// Package geo 提供球面距离与经纬度范围计算
package geo

import "math"

// EarthRadius 地球平均半径（米）
const EarthRadius = 6371000.0

// Point 经纬度坐标
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid 经纬度是否在合法范围内
func (p Point) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Distance haversine 球面距离（米）
func Distance(a, b Point) float64 {
	dLat := rad(b.Latitude - a.Latitude)
	dLng := rad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Latitude))*math.Cos(rad(b.Latitude))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Box 经纬度矩形范围，用于数据库预筛
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Contains 点是否落在矩形内
func (b Box) Contains(p Point) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLng && p.Longitude <= b.MaxLng
}

// BoundingBox 以 center 为中心、radius（米）为半径的外接矩形。
// 靠近极点时经度范围退化为全经度。
func BoundingBox(center Point, radius float64) Box {
	dLat := radius / EarthRadius * 180 / math.Pi
	box := Box{
		MinLat: math.Max(-90, center.Latitude-dLat),
		MaxLat: math.Min(90, center.Latitude+dLat),
		MinLng: -180,
		MaxLng: 180,
	}
	cos := math.Cos(rad(center.Latitude))
	if cos < 1e-6 {
		return box
	}
	dLng := dLat / cos
	if dLng >= 180 {
		return box
	}
	box.MinLng = center.Longitude - dLng
	box.MaxLng = center.Longitude + dLng
	// 跨越 ±180° 经线时放宽为全经度，由精确距离过滤
	if box.MinLng < -180 || box.MaxLng > 180 {
		box.MinLng, box.MaxLng = -180, 180
	}
	return box
}
