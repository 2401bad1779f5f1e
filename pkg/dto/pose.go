package dto

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PoseRequest struct {
	Joints []Point `json:"joints" binding:"required"`
}

type CapturePoseResponse struct {
	Session string `json:"session"`
	Index   int    `json:"index"`
	Saved   int    `json:"saved"`
	Max     int    `json:"max"`
}

type SessionResponse struct {
	Session string    `json:"session"`
	Poses   [][]Point `json:"poses"`
	Max     int       `json:"max"`
}

type PoseMatchResponse struct {
	Scores    []float64 `json:"scores"`
	BestIndex int       `json:"best_index"` // -1 when no poses are saved
	BestScore float64   `json:"best_score"`
}

type ComparePosesRequest struct {
	Current []Point `json:"current" binding:"required"`
	Saved   []Point `json:"saved" binding:"required"`
}

type ComparePosesResponse struct {
	Score float64 `json:"score"`
}

type JointsRequest struct {
	Heatmap []float64 `json:"heatmap" binding:"required"`
	Joints  int       `json:"joints" binding:"gte=0,lte=64"`
	Size    int       `json:"size" binding:"gte=0,lte=1024"`
	Width   float64   `json:"width" binding:"gt=0"`
	Height  float64   `json:"height" binding:"gt=0"`
}

type Joint struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type JointsResponse struct {
	Joints      []Joint  `json:"joints"`
	Connections [][2]int `json:"connections"`
}
