package models

// FilterAll 合成的“全部”筛选值，选中即清空对应集合
const FilterAll = "all"

// FilterState 多选筛选条件，空集合表示不限制
type FilterState struct {
	Status   []VehicleStatus  `json:"status"`
	Charging []ChargingStatus `json:"charging"`
}

// IsEmpty 是否没有任何筛选
func (f FilterState) IsEmpty() bool {
	return len(f.Status) == 0 && len(f.Charging) == 0
}

// Clone 深拷贝
func (f FilterState) Clone() FilterState {
	return FilterState{
		Status:   append([]VehicleStatus{}, f.Status...),
		Charging: append([]ChargingStatus{}, f.Charging...),
	}
}

// FilterCounts 各筛选项在完整车队上的数量
type FilterCounts struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Inactive    int `json:"inactive"`
	Maintenance int `json:"maintenance"`
	Charging    int `json:"charging"`
	Discharging int `json:"discharging"`
	Idle        int `json:"idle"`
}

// SortOption 排序字段
type SortOption string

const (
	SortByName     SortOption = "name"
	SortByBattery  SortOption = "battery"
	SortBySpeed    SortOption = "speed"
	SortByOdometer SortOption = "odometer"
	SortByStatus   SortOption = "status"
)

// SortOrder 排序方向
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// SortState 排序状态
type SortState struct {
	Option SortOption `json:"option"`
	Order  SortOrder  `json:"order"`
}
