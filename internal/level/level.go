// Package level 实现双等级体系（简化等级 + NTRP）的匹配规则。
// 纯函数，无副作用。
package level

import "math"

// 简化等级
const (
	Novice       = "新手"
	Beginner     = "初级"
	Intermediate = "中级"
	Advanced     = "高级"
	Professional = "专业"
)

// NTRP 取值边界
const (
	NTRPMin = 1.0
	NTRPMax = 7.0
)

const epsilon = 1e-9

// Range NTRP 闭区间
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains 闭区间包含判断
func (r Range) Contains(ntrp float64) bool {
	return ntrp >= r.Min-epsilon && ntrp <= r.Max+epsilon
}

// Mid 区间中点
func (r Range) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Band 简化等级与 NTRP 区间的对应关系
type Band struct {
	Level       string
	Range       Range
	Description string
	Example     string
}

// bands 按等级由低到高排列，RangeToSimpleLevel 依赖此顺序
var bands = []Band{
	{Novice, Range{1.0, 2.0}, "刚开始学，还不太会打", "正在学习握拍和基础击球"},
	{Beginner, Range{2.5, 3.0}, "能连续对打，但不稳定", "能慢速对拉 5-10 拍"},
	{Intermediate, Range{3.5, 4.0}, "能打比赛，有基本战术", "能参加业余比赛"},
	{Advanced, Range{4.5, 5.0}, "参加过正式比赛，技术全面", "俱乐部主力水平"},
	{Professional, Range{5.5, 7.0}, "职业或准职业水平", "专业运动员"},
}

// Bands 返回全部等级定义的副本
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// IsValidSimple 是否为五档简化等级之一
func IsValidSimple(level string) bool {
	_, ok := lookup(level)
	return ok
}

// IsValidNTRP 是否在 [1.0, 7.0] 内
func IsValidNTRP(ntrp float64) bool {
	return ntrp >= NTRPMin && ntrp <= NTRPMax
}

func lookup(level string) (Band, bool) {
	for _, b := range bands {
		if b.Level == level {
			return b, true
		}
	}
	return Band{}, false
}

// SimpleLevelToRange 简化等级转 NTRP 区间，未知等级返回全区间 [1.0, 7.0]
func SimpleLevelToRange(level string) Range {
	if b, ok := lookup(level); ok {
		return b.Range
	}
	return Range{NTRPMin, NTRPMax}
}

// RangeToSimpleLevel NTRP 转简化等级：取第一个包含该值的区间，均不包含时回落为中级
func RangeToSimpleLevel(ntrp float64) string {
	for _, b := range bands {
		if b.Range.Contains(ntrp) {
			return b.Level
		}
	}
	return Intermediate
}

// Description 等级描述
func Description(level string) string {
	b, _ := lookup(level)
	return b.Description
}

// ExpandRange 以 ntrp 为中心按容忍度扩展区间，结果截断在 [1.0, 7.0]
func ExpandRange(ntrp, tolerance float64) Range {
	return Range{
		Min: math.Max(NTRPMin, ntrp-tolerance),
		Max: math.Min(NTRPMax, ntrp+tolerance),
	}
}

// UserLevel 用户在某项运动上的等级
type UserLevel struct {
	Simple string
	NTRP   *float64
}

// Requirement 约球局的等级要求；单一等级要求以长度为 1 的切片表示
type Requirement struct {
	SimpleLevels []string
	NTRPRange    *Range
}

func containsLevel(levels []string, level string) bool {
	for _, l := range levels {
		if l == level {
			return true
		}
	}
	return false
}

// Matches 判断用户等级是否满足要求，按优先级取第一个适用的策略：
//  1. 双方都有 NTRP：区间包含
//  2. 双方都有简化等级：集合包含
//  3. 用户只有 NTRP 而要求为简化等级：NTRP 先换算为简化等级再判断
//  4. 其余情况一律不匹配
func Matches(u UserLevel, req Requirement) bool {
	if u.NTRP != nil && req.NTRPRange != nil {
		return req.NTRPRange.Contains(*u.NTRP)
	}
	if u.Simple != "" && len(req.SimpleLevels) > 0 {
		return containsLevel(req.SimpleLevels, u.Simple)
	}
	if u.NTRP != nil && len(req.SimpleLevels) > 0 {
		return containsLevel(req.SimpleLevels, RangeToSimpleLevel(*u.NTRP))
	}
	return false
}

// 匹配度分值
const (
	ScoreExact = 100
	ScoreClose = 80
	ScoreMaybe = 50
	ScoreNone  = 0
)

// MatchScore 匹配度，仅用于排序提示，不作为准入条件
func MatchScore(u UserLevel, req Requirement) int {
	if u.NTRP != nil && req.NTRPRange != nil {
		ntrp := *u.NTRP
		if req.NTRPRange.Contains(ntrp) {
			return ScoreExact
		}
		diff := math.Abs(ntrp - req.NTRPRange.Mid())
		switch {
		case diff <= 0.5+epsilon:
			return ScoreClose
		case diff <= 1.0+epsilon:
			return ScoreMaybe
		}
		return ScoreNone
	}

	if u.Simple != "" && containsLevel(req.SimpleLevels, u.Simple) {
		return ScoreClose
	}
	return ScoreNone
}
