package dto

// ReplayRequest represents a replay query for one entity
type ReplayRequest struct {
	From int64 `form:"from,default=1" binding:"min=1" example:"1"`
	To   int64 `form:"to" example:"1000"`
	Max  int64 `form:"max,default=1000" binding:"min=1,max=10000" example:"1000"`
}

// EventsByTagRequest represents a tag-index query
type EventsByTagRequest struct {
	FromToken string `form:"from_token" example:"8c7f62aa-2f4b-11ef-9454-0242ac120002"`
	Limit     int64  `form:"limit,default=100" binding:"min=1,max=10000" example:"100"`
}

// DeleteToRequest represents a logical delete up to a sequence number
type DeleteToRequest struct {
	To int64 `form:"to" binding:"required,min=1" example:"500"`
}
