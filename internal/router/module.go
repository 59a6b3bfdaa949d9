package router

import "github.com/gin-gonic/gin"

// Module describes a feature module that can register its routes on the /api group
type Module interface {
	Register(rg *gin.RouterGroup)
}

// ModuleFunc adapts a plain function to Module for one-route features.
type ModuleFunc func(rg *gin.RouterGroup)

func (f ModuleFunc) Register(rg *gin.RouterGroup) { f(rg) }
