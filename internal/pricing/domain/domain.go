// Package domain 二叉树期权定价引擎：期限结构、树构造、倒推定价与有限差分 Greeks。
//
// 所有计算都是同步、纯函数式的；每次参数变化都构造新的树和价值矩阵，
// 因此不同实例可以在多个 goroutine 中并行使用。
package domain
