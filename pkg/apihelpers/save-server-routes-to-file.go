package apihelpers

import (
	"bufio"
	"fmt"
	"os"
	"sort"

	"github.com/gin-gonic/gin"
)

// WriteRoutesToFile lists the router's routes, one "METHOD<TAB>path" per line,
// sorted by path.
func WriteRoutesToFile(router *gin.Engine, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	routes := router.Routes()
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})

	w := bufio.NewWriter(file)
	for _, route := range routes {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", route.Method, route.Path); err != nil {
			return err
		}
	}
	return w.Flush()
}
