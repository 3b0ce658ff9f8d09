package breaker

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
)

// KeyFunc 从 gRPC 调用上下文中提取熔断器名字
type KeyFunc func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string

// ServiceLevelKey 服务级别 Key，使用连接目标作为熔断维度
// 返回示例: "etcd:///payment-service"
func ServiceLevelKey() KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		return cc.Target()
	}
}

// MethodLevelKey 方法级别 Key，按方法独立熔断
// 返回示例: "/pkg.Service/Method"
func MethodLevelKey() KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		return fullMethod
	}
}

// BackendLevelKey 后端级别 Key，从 Peer 信息中提取真实后端地址
// 注意: 需要等连接建立后才能获取 Peer 信息，第一次调用可能回退到服务名
func BackendLevelKey() KeyFunc {
	return func(ctx context.Context, fullMethod string, cc *grpc.ClientConn) string {
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			if addr := p.Addr.String(); addr != "" {
				return addr
			}
		}
		return cc.Target()
	}
}

// InterceptorOption 拦截器选项
type InterceptorOption func(*interceptorOptions)

type interceptorOptions struct {
	keyFunc KeyFunc
}

// WithKeyFunc 自定义熔断维度的提取方式
func WithKeyFunc(fn KeyFunc) InterceptorOption {
	return func(o *interceptorOptions) {
		if fn != nil {
			o.keyFunc = fn
		}
	}
}

// UnaryClientInterceptor 返回 gRPC 一元调用客户端拦截器，
// 为每个出站调用套上熔断保护。
//
// 使用示例:
//
//	b, _ := breaker.New(cfg, st)
//	conn, _ := grpc.NewClient(
//		"localhost:9001",
//		grpc.WithUnaryInterceptor(breaker.UnaryClientInterceptor(b)),
//	)
func UnaryClientInterceptor(b Breaker, opts ...InterceptorOption) grpc.UnaryClientInterceptor {
	o := &interceptorOptions{keyFunc: ServiceLevelKey()}
	for _, opt := range opts {
		opt(o)
	}

	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, callOpts ...grpc.CallOption) error {
		name := o.keyFunc(ctx, method, cc)
		_, err := b.Execute(ctx, name, func() (any, error) {
			return nil, invoker(ctx, method, req, reply, cc, callOpts...)
		})
		return err
	}
}

// StreamClientInterceptor 返回 gRPC 流式调用客户端拦截器。
// 熔断只保护流的建立，流建立后的收发不计入统计。
func StreamClientInterceptor(b Breaker, opts ...InterceptorOption) grpc.StreamClientInterceptor {
	o := &interceptorOptions{keyFunc: ServiceLevelKey()}
	for _, opt := range opts {
		opt(o)
	}

	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, callOpts ...grpc.CallOption) (grpc.ClientStream, error) {
		name := o.keyFunc(ctx, method, cc)
		result, err := b.Execute(ctx, name, func() (any, error) {
			return streamer(ctx, desc, cc, method, callOpts...)
		})
		if err != nil {
			return nil, err
		}
		return result.(grpc.ClientStream), nil
	}
}
