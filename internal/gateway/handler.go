package gateway

import (
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"meetai/internal/consul"

	"github.com/gin-gonic/gin"
)

// ProxyHandler handles reverse proxy requests to backend services
type ProxyHandler struct {
	discovery consul.ServiceDiscovery
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(discovery consul.ServiceDiscovery) *ProxyHandler {
	return &ProxyHandler{
		discovery: discovery,
	}
}

// ProxyRequest creates a handler that proxies requests to the specified service
func (h *ProxyHandler) ProxyRequest(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxy, ok := h.buildProxy(c, serviceName)
		if !ok {
			return
		}

		c.Set("upstream_service", serviceName)
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

// ProxyWithPathRewrite proxies requests with path rewriting
// Example: /api/agents/* -> /agents/* on the agents service
func (h *ProxyHandler) ProxyWithPathRewrite(serviceName, stripPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		proxy, ok := h.buildProxy(c, serviceName)
		if !ok {
			return
		}

		originalDirector := proxy.Director
		proxy.Director = func(req *http.Request) {
			originalDirector(req)

			if stripPrefix != "" && len(req.URL.Path) > len(stripPrefix) {
				req.URL.Path = req.URL.Path[len(stripPrefix):]
				if req.URL.Path == "" {
					req.URL.Path = "/"
				}
			}

			log.Printf("Proxying %s %s -> %s%s",
				req.Method, c.Request.URL.Path, req.URL.Host, req.URL.Path)
		}

		c.Set("upstream_service", serviceName)
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}

// buildProxy discovers a service instance and prepares a reverse proxy to it.
// On failure it writes the error response and returns ok=false.
func (h *ProxyHandler) buildProxy(c *gin.Context, serviceName string) (*httputil.ReverseProxy, bool) {
	instance, err := h.discovery.DiscoverOne(serviceName)
	if err != nil {
		log.Printf("Failed to discover service %s: %v", serviceName, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": fmt.Sprintf("service %s unavailable", serviceName),
		})
		return nil, false
	}

	target := fmt.Sprintf("http://%s:%d", instance.Address, instance.Port)
	targetURL, err := url.Parse(target)
	if err != nil {
		log.Printf("Failed to parse target URL %s: %v", target, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
		})
		return nil, false
	}

	proxy := httputil.NewSingleHostReverseProxy(targetURL)

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("Proxy error for %s: %v", serviceName, err)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"bad gateway"}`))
	}

	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.URL.Scheme = targetURL.Scheme
		req.URL.Host = targetURL.Host
		req.Host = targetURL.Host

		log.Printf("Proxying %s %s -> %s", req.Method, c.Request.URL.Path, req.URL.String())
	}

	return proxy, true
}

// Health is the gateway health check handler
func (h *ProxyHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "api-gateway",
	})
}
