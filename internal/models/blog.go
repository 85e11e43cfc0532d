package models

import "time"

type Author struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;not null" json:"name"`
	Bio  string `gorm:"type:text" json:"bio"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:40;uniqueIndex;not null" json:"name"`
}

type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:20;uniqueIndex;not null" json:"name"`
}

// Article is a blog post. Listings load it without Content.
type Article struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:200;not null" json:"title"`
	Content    string    `gorm:"type:text" json:"content,omitempty"`
	PubDate    time.Time `gorm:"index" json:"pub_date"`
	AuthorID   uint      `gorm:"not null;index" json:"author_id"`
	Author     *Author   `gorm:"constraint:OnDelete:CASCADE" json:"author,omitempty"`
	CategoryID uint      `gorm:"not null;index" json:"category_id"`
	Category   *Category `gorm:"constraint:OnDelete:CASCADE" json:"category,omitempty"`
	Tags       []Tag     `gorm:"many2many:article_tags;" json:"tags"`
}
